package domain

import "errors"

var (
	// ErrExerciseNotFound indicates the exercise document could not be loaded.
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrRoomNotFound is returned when a room has not been initialized.
	ErrRoomNotFound = errors.New("room not found")
	// ErrParticipantNotFound is returned when a directed message targets a
	// name or connection that is not in the room.
	ErrParticipantNotFound = errors.New("participant not found in room")
	// ErrUnknownKind indicates an exercise kind outside the supported set.
	ErrUnknownKind = errors.New("unknown exercise kind")
)
