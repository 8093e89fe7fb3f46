package model

import "errors"

// Common errors used across the application
var (
	// Store errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerExists   = errors.New("player already exists")
	ErrInvalidPlayer  = errors.New("invalid player")

	// Feed errors
	ErrInvalidEvent       = errors.New("invalid change event")
	ErrAlreadySubscribed  = errors.New("feed already subscribed")

	// Session errors
	ErrAlreadyJoined = errors.New("player has already joined")
	ErrAlreadyLeft   = errors.New("player has already left")
	ErrJoinInFlight  = errors.New("join already in progress")
)
