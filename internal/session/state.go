package session

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/profilebot/internal/instrument"
	"github.com/abhisek/profilebot/internal/synth"
)

// Stage is the position of a session in the battery.
type Stage string

const (
	StageAwaitName Stage = "AWAIT_NAME" // Waiting for the respondent's name
	StageRunPAEI   Stage = "RUN_PAEI"
	StageRunSOFT   Stage = "RUN_SOFT"
	StageRunHEXACO Stage = "RUN_HEXACO"
	StageRunDISC   Stage = "RUN_DISC"
	StageCompleted Stage = "COMPLETED" // All instruments answered and scored
	StageAborted   Stage = "ABORTED"   // Cancelled by the respondent or a scoring failure
)

// StageFor returns the running stage of an instrument.
func StageFor(inst instrument.Instrument) Stage {
	return Stage("RUN_" + string(inst))
}

// Instrument returns the instrument a running stage asks about.
func (s Stage) Instrument() (instrument.Instrument, bool) {
	switch s {
	case StageRunPAEI:
		return instrument.PAEI, true
	case StageRunSOFT:
		return instrument.SOFT, true
	case StageRunHEXACO:
		return instrument.HEXACO, true
	case StageRunDISC:
		return instrument.DISC, true
	}
	return "", false
}

// Terminal reports whether the session is frozen.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageAborted
}

// Artefact is one published report of a session.
type Artefact struct {
	Variant   string
	Filename  string
	URL       string
	LocalPath string
}

// Session is one respondent's pass through the battery. It is owned by a
// single actor and only changed through Machine.Handle or by the completion
// pipeline of that actor.
type Session struct {
	// ID identifies this session in logs and the report log.
	ID string

	UserID      string
	DisplayName string
	CreatedAt   time.Time
	CompletedAt time.Time

	Stage Stage

	// Cursor is the index of the next item within the current instrument.
	Cursor int

	// Responses are all accepted answers in arrival order.
	Responses []instrument.Response

	// Scores holds raw and normalised scores of every finished instrument.
	Scores map[instrument.Instrument]instrument.Scores

	// Narratives are filled in by the completion pipeline.
	Narratives synth.Narratives

	// Artefacts are filled in by the completion pipeline.
	Artefacts []Artefact

	// Pending is set while the completion pipeline runs for this session.
	Pending bool
}

func newSession(userID string, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		Stage:     StageAwaitName,
		Scores:    make(map[instrument.Instrument]instrument.Scores),
	}
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Responses = slices.Clone(s.Responses)
	out.Scores = make(map[instrument.Instrument]instrument.Scores, len(s.Scores))
	for inst, sc := range s.Scores {
		out.Scores[inst] = sc.Clone()
	}
	out.Narratives = maps.Clone(s.Narratives)
	out.Artefacts = slices.Clone(s.Artefacts)
	return &out
}
