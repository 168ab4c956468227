package facecheck

import "errors"

var (
	ErrCheckNotFound  = errors.New("face check not found")
	ErrCheckCompleted = errors.New("face check already completed")
	ErrNotYourCheck   = errors.New("face check belongs to another guard")
	ErrNoSample       = errors.New("no face sample provided")
	ErrGuardNotFound  = errors.New("guard not found")
)
