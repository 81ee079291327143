package domain

import "errors"

var (
	// ErrTournamentUnavailable is returned when no live tournament matches a discipline.
	ErrTournamentUnavailable = errors.New("no active tournament for discipline")
	// ErrTournamentClosed is returned when joining outside the tournament window.
	ErrTournamentClosed = errors.New("tournament is not accepting participants")
	// ErrTournamentExpired is returned when the tournament window lapsed mid-session.
	ErrTournamentExpired = errors.New("tournament window has expired")
	// ErrTournamentFull is returned when the participant cap is reached.
	ErrTournamentFull = errors.New("tournament participant cap reached")
	// ErrQuestionAlreadyAnswered is returned on a duplicate attempt for the same question.
	ErrQuestionAlreadyAnswered = errors.New("question already answered")
	// ErrQuestionExpired is returned when a submission arrives after the question clock ran out.
	ErrQuestionExpired = errors.New("question time expired")
	// ErrGradingBackendUnavailable is returned when the execution sandbox fails or times out.
	ErrGradingBackendUnavailable = errors.New("grading backend unavailable")
	// ErrParticipantNotFound is returned when a user acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in tournament")
	// ErrQuestionNotFound indicates a submitted question index is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrSessionNotFound is returned when a session has not been initialized.
	ErrSessionNotFound = errors.New("tournament session not found")
	// ErrTournamentNotFound indicates an unknown tournament ID.
	ErrTournamentNotFound = errors.New("tournament not found")
)
