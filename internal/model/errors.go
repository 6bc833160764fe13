package model

import "errors"

var ErrValidation = errors.New("invalid input")
var ErrNoActiveSession = errors.New("no active session")
var ErrNotFound = errors.New("not found")
var ErrInvalidState = errors.New("invalid state")
var ErrRevealExhausted = errors.New("all positions already revealed")
var ErrStorage = errors.New("storage failure")
var ErrBroadcast = errors.New("broadcast failure")
