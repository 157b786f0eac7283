package collectors

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// DomainList holds blacklisted source domains. Matching is by substring so
// that an entry like "breitbart.com" also catches "www.breitbart.com".
type DomainList struct {
	domains []string
}

// NewDomainList builds a list from raw entries, lowercasing and dropping
// blanks.
func NewDomainList(entries []string) *DomainList {
	l := &DomainList{}
	for _, e := range entries {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			l.domains = append(l.domains, e)
		}
	}
	return l
}

// Matches reports whether a hostname contains any blacklisted domain.
func (l *DomainList) Matches(host string) bool {
	if l == nil {
		return false
	}
	host = strings.ToLower(host)
	for _, d := range l.domains {
		if strings.Contains(host, d) {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (l *DomainList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.domains)
}

// UserList holds usernames of known sockpuppet accounts.
type UserList struct {
	users map[string]struct{}
}

// NewUserList builds a set from raw entries.
func NewUserList(entries []string) *UserList {
	l := &UserList{users: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e != "" {
			l.users[e] = struct{}{}
		}
	}
	return l
}

// Contains reports whether a username is on the list.
func (l *UserList) Contains(name string) bool {
	if l == nil {
		return false
	}
	_, ok := l.users[name]
	return ok
}

// Len returns the number of entries.
func (l *UserList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.users)
}

// LoadDomainList reads a blacklist file. CSV files use the "domain" column
// when the header names one, otherwise the first column; any other
// extension is read as one domain per line.
func LoadDomainList(path string) (*DomainList, error) {
	entries, err := loadColumn(path, "domain")
	if err != nil {
		return nil, fmt.Errorf("load domain list %s: %w", path, err)
	}
	return NewDomainList(entries), nil
}

// LoadUserList reads a sockpuppet file, with the same format handling as
// LoadDomainList but keyed on a "username" column.
func LoadUserList(path string) (*UserList, error) {
	entries, err := loadColumn(path, "username")
	if err != nil {
		return nil, fmt.Errorf("load user list %s: %w", path, err)
	}
	return NewUserList(entries), nil
}

func loadColumn(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !strings.HasSuffix(strings.ToLower(path), ".csv") {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		return strings.Split(string(data), "\n"), nil
	}

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := 0
	start := 0
	for i, name := range records[0] {
		if strings.EqualFold(strings.TrimSpace(name), column) {
			col = i
			start = 1
			break
		}
	}

	var entries []string
	for _, rec := range records[start:] {
		if col < len(rec) {
			entries = append(entries, rec[col])
		}
	}
	return entries, nil
}
