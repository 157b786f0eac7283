package collectors

// talkNamespaces maps a language code to its localized talk namespace
// prefix, used to address discussion pages through the Action API.
var talkNamespaces = map[string]string{
	"fr":  "Discussion",
	"en":  "Talk",
	"de":  "Diskussion",
	"it":  "Discussione",
	"es":  "Discusión",
	"ca":  "Discussió",
	"pt":  "Discussão",
	"et":  "Arutelu",
	"lv":  "Diskusija",
	"lt":  "Aptarimas",
	"ro":  "Discuție",
	"uk":  "Обговорення",
	"be":  "Размовы",
	"ru":  "Обсуждение",
	"nl":  "Overleg",
	"da":  "Diskussion",
	"sv":  "Diskussion",
	"no":  "Diskusjon",
	"fi":  "Keskustelu",
	"is":  "Spjall",
	"pl":  "Dyskusja",
	"hu":  "Vita",
	"cs":  "Diskuse",
	"sk":  "Diskusia",
	"bg":  "Беседа",
	"sr":  "Разговор",
	"sh":  "Razgovor",
	"hr":  "Razgovor",
	"bs":  "Razgovor",
	"mk":  "Разговор",
	"sl":  "Pogovor",
	"sq":  "Diskutim",
	"el":  "Συζήτηση",
	"tr":  "Tartışma",
	"ka":  "განხილვა",
	"hy":  "Քննարկում",
	"he":  "שיחה",
	"ar":  "نقاش",
	"arz": "نقاش",
	"fa":  "بحث",
	"hi":  "वार्ता",
	"id":  "Pembicaraan",
	"ceb": "Hisgot",
	"zh":  "Talk",
	"ja":  "ノート",
}

// TalkTitle returns the localized talk-page title for an article. Languages
// without a known localization fall back to the English prefix.
func TalkTitle(lang, title string) string {
	ns, ok := talkNamespaces[lang]
	if !ok {
		ns = "Talk"
	}
	return ns + ":" + title
}

// citationTemplates lists the inline "citation needed" template names per
// language, matched case-insensitively inside {{...}} markup.
var citationTemplates = map[string][]string{
	"fr": {"refnec", "référence nécessaire", "citation needed", "cn"},
	"en": {"citation needed", "cn", "fact", "verify", "clarification needed"},
	"de": {"belege fehlen", "quelle fehlt", "citation needed", "cn"},
	"es": {"cita requerida", "cr", "verificar"},
	"it": {"citazione necessaria", "citation needed", "cn", "senza fonte"},
	"pt": {"carece de fontes", "citation needed", "cn", "verificar"},
	"ru": {"нет источника", "citation needed", "источник", "cn"},
	"ja": {"要出典", "citation needed", "cn", "出典"},
	"zh": {"来源请求", "citation needed", "cn", "需要来源"},
	"ar": {"مصدر مطلوب", "citation needed", "cn", "بحاجة لمصدر"},
	"nl": {"bron", "citation needed", "cn", "verificatie"},
	"sv": {"källa behövs", "citation needed", "cn", "källa"},
	"no": {"referanse trengs", "citation needed", "cn", "kilde"},
	"da": {"kilde mangler", "citation needed", "cn", "kilde"},
	"fi": {"lähde", "citation needed", "cn", "tarkista"},
}

var defaultCitationTemplates = []string{"citation needed", "cn", "refnec", "référence nécessaire"}

func citationTemplatesFor(lang string) []string {
	if ts, ok := citationTemplates[lang]; ok {
		return ts
	}
	return defaultCitationTemplates
}

// Assessment grades, 0.0 = highest quality, 1.0 = lowest. Only the French
// and English projects carry a supported grading scheme; other languages
// score a neutral 0.5.
var (
	gradeScoresFR = map[string]float64{
		"adq":     0.0,
		"ba":      0.2,
		"a":       0.4,
		"b":       0.6,
		"bd":      0.8,
		"ébauche": 1.0,
	}
	gradeScoresEN = map[string]float64{
		"fa":    0.0,
		"a":     0.2,
		"ga":    0.3,
		"b":     0.6,
		"c":     0.7,
		"start": 0.85,
		"stub":  1.0,
	}
	// Long-form labels used on French talk pages, normalized to grade keys.
	gradeAliasesFR = map[string]string{
		"article de qualité": "adq",
		"bon article":        "ba",
		"avancé":             "a",
		"bien construit":     "b",
		"bon début":          "bd",
		"e":                  "ébauche",
	}
)

// protectionLevelScores ranks edit-protection levels by restrictiveness.
var protectionLevelScores = map[string]float64{
	"":                          0.0,
	"autoconfirmed":             0.25,
	"editautopatrolprotected":   0.25,
	"editextendedsemiprotected": 0.5,
	"extendedconfirmed":         0.5,
	"templateeditor":            0.75,
	"editautoreviewprotected":   0.75,
	"sysop":                     1.0,
}

// Spike normalization references, the spike value that maps to a full
// score. Calibrated against historical baselines.
const (
	pageviewSpikeReference = 37.2002
	editSpikeReference     = 22.0
)
