package errors

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid ballot engine input")
	ErrElectionNotFound   = errors.New("election not found")
	ErrUnauthorized       = errors.New("caller is not the election administrator")
	ErrAlreadyRegistered  = errors.New("voter is already registered")
	ErrAlreadyStarted     = errors.New("voting window is already started")
	ErrAlreadyClosed      = errors.New("voting window is already closed")
	ErrVotingNotActive    = errors.New("voting window is not active")
	ErrVotingNotEnded     = errors.New("voting window has not ended")
	ErrVoterNotRegistered = errors.New("voter is not registered")
	ErrAlreadyVoted       = errors.New("voter has already voted")
	ErrInvalidProposal    = errors.New("proposal does not exist")
	ErrConflict           = errors.New("ballot engine conflict")
)
