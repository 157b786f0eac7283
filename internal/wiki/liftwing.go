package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Lift Wing model identifiers.
const (
	ModelRevertRisk    = "revertrisk-language-agnostic"
	ModelReferenceRisk = "reference-risk"
	ModelReadability   = "readability"
)

type liftWingRequest struct {
	RevID int64  `json:"rev_id"`
	Lang  string `json:"lang"`
}

type liftWingResponse struct {
	Output struct {
		Probabilities struct {
			True float64 `json:"true"`
		} `json:"probabilities"`
		Score float64 `json:"score"`
	} `json:"output"`
}

func (c *Client) predict(ctx context.Context, model, lang string, revID int64) (*liftWingResponse, error) {
	payload, err := json.Marshal(liftWingRequest{RevID: revID, Lang: lang})
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", model, err)
	}

	fullURL := fmt.Sprintf("%s/%s:predict", c.cfg.LiftWingBaseURL, model)

	var resp liftWingResponse
	if err := c.doJSON(ctx, endpointLiftWing, endpointLiftWing, http.MethodPost, fullURL, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RevertRisk returns the probability that a revision will be reverted,
// from the language-agnostic revert-risk model.
func (c *Client) RevertRisk(ctx context.Context, lang string, revID int64) (float64, error) {
	resp, err := c.predict(ctx, ModelRevertRisk, lang, revID)
	if err != nil {
		return 0, err
	}
	return resp.Output.Probabilities.True, nil
}

// ReferenceRisk returns the reference-risk model score for a revision.
func (c *Client) ReferenceRisk(ctx context.Context, lang string, revID int64) (float64, error) {
	resp, err := c.predict(ctx, ModelReferenceRisk, lang, revID)
	if err != nil {
		return 0, err
	}
	return resp.Output.Score, nil
}

// Readability returns the readability model score for a revision.
func (c *Client) Readability(ctx context.Context, lang string, revID int64) (float64, error) {
	resp, err := c.predict(ctx, ModelReadability, lang, revID)
	if err != nil {
		return 0, err
	}
	return resp.Output.Score, nil
}
