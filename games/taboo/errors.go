/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package taboo

import "errors"

var (
	ErrDeckExhausted           = errors.New("card pool is empty")
	ErrInvalidLeaderAssignment = errors.New("player has no team to lead")
	ErrUnauthorized            = errors.New("only the active team's leader may do that")
	ErrUnknownPlayer           = errors.New("unknown player")
	ErrCardAlreadyRevealed     = errors.New("a card is already revealed")
	ErrNoCardRevealed          = errors.New("no card is revealed")
	ErrTimerAlreadyActive      = errors.New("timer is already running")
	ErrTimerNotActive          = errors.New("timer is not running")
)
