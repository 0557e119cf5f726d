package simulator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/c360/adapterkit/extension"
)

// PingFeatureURI is the simulator's extension feature namespace.
const PingFeatureURI = "https://adapterkit.c360.dev/features/ping/"

const pingInputSchema = `{
	"type": "object",
	"properties": {
		"Message": {"type": "string", "maxLength": 1024}
	},
	"required": ["Message"],
	"additionalProperties": false
}`

const pingOutputSchema = `{
	"type": "object",
	"properties": {
		"Message": {"type": "string"},
		"UtcTime": {"type": "string", "format": "date-time"}
	},
	"required": ["Message", "UtcTime"]
}`

type pingRequest struct {
	Message string `json:"Message"`
}

type pingResponse struct {
	Message string    `json:"Message"`
	UtcTime time.Time `json:"UtcTime"`
}

// newPingFeature builds the ping extension: a single schema-validated
// echo operation.
func newPingFeature() (*extension.Feature, error) {
	feature, err := extension.NewFeature(PingFeatureURI, "Ping",
		"Responds to pings with the same message and the current UTC time")
	if err != nil {
		return nil, err
	}

	err = feature.BindInvoke("ping", "Echoes the ping message",
		json.RawMessage(pingInputSchema), json.RawMessage(pingOutputSchema),
		func(_ context.Context, body json.RawMessage) (json.RawMessage, error) {
			var req pingRequest
			if err := json.Unmarshal(body, &req); err != nil {
				return nil, err
			}
			return json.Marshal(pingResponse{
				Message: req.Message,
				UtcTime: time.Now().UTC(),
			})
		})
	if err != nil {
		return nil, err
	}
	return feature, nil
}
