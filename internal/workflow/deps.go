package workflow

import (
	"errors"
	"log/slog"

	"speechflow/internal/domain"
	"speechflow/internal/feedback"
	"speechflow/internal/media"
	"speechflow/internal/remote"
	"speechflow/internal/uilock"
	"speechflow/internal/uistate"
)

// Persister saves workflow fields durably, best-effort.
type Persister interface {
	SaveField(key, value string)
}

// PlayerAttacher attaches a playback engine to newly available audio.
type PlayerAttacher interface {
	Attach(playerID string, resource *domain.MediaResource)
}

// Player element identifiers for the two audio surfaces.
const (
	SourcePlayerID = "source-player"
	ResultPlayerID = "result-player"
)

// Deps are the collaborators shared by the stage orchestrators. State is
// the single owned workflow record, passed by reference; no component holds
// a global copy.
type Deps struct {
	State    *domain.WorkflowState
	Remote   remote.Client
	Lock     *uilock.Lock
	Feedback *feedback.Surface
	Session  Persister
	UI       *uistate.Component
	Media    *media.Registry
	Players  PlayerAttacher
	Logger   *slog.Logger
}

// logger returns the configured logger or a default one.
func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// attachPlayer forwards audio to the player attacher when configured.
func (d *Deps) attachPlayer(playerID string, resource *domain.MediaResource) {
	if d.Players != nil && resource != nil {
		d.Players.Attach(playerID, resource)
	}
}

// persist saves one field when a session store is configured.
func (d *Deps) persist(key, value string) {
	if d.Session != nil {
		d.Session.SaveField(key, value)
	}
}

// mediaPayload converts an owned media resource to the remote upload shape.
func mediaPayload(resource *domain.MediaResource) remote.Media {
	if resource == nil {
		return remote.Media{}
	}
	return remote.Media{
		Name:     resource.Name,
		MimeType: resource.MimeType,
		Data:     resource.Data,
	}
}

// failureMessage extracts the user-facing message from a stage failure,
// preferring the remote collaborator's own message verbatim.
func failureMessage(err error) string {
	var remoteErr *remote.Error
	if errors.As(err, &remoteErr) {
		return remoteErr.Message
	}
	return err.Error()
}
