package tui

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/leadctl/pkg/jobclient"
	"github.com/go-go-golems/leadctl/pkg/protocol"
	"github.com/pkg/errors"
)

type ActionKind string

const (
	ActionStart         ActionKind = "start"
	ActionStop          ActionKind = "stop"
	ActionReconnect     ActionKind = "reconnect"
	ActionRefreshStatus ActionKind = "refresh-status"
	ActionFetchArtifact ActionKind = "fetch-artifact"
	ActionUpdateDraft   ActionKind = "update-draft"
)

type ActionRequest struct {
	Kind ActionKind `json:"kind"`
	At   time.Time  `json:"at"`

	Niche    string                 `json:"niche,omitempty"`
	MaxSites int                    `json:"max_sites,omitempty"`
	Step     protocol.Step          `json:"step,omitempty"`
	StoreURL string                 `json:"store_url,omitempty"`
	Draft    *jobclient.DraftUpdate `json:"draft,omitempty"`
}

func PublishAction(pub message.Publisher, req ActionRequest) error {
	if req.Kind == "" {
		return errors.New("missing action kind")
	}
	if req.At.IsZero() {
		req.At = time.Now()
	}
	return Publish(pub, TopicUIActions, UITypeActionRequest, req)
}
