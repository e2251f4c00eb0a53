package services

import (
	"fmt"

	"github.com/anjiri1684/stuplan/models"
)

type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("StatusKind(%d)", int(k))
	}
}

func (k StatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UpdateStatus describes the outcome of the most recent profile operation.
// Message is only set for StatusError.
type UpdateStatus struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message,omitempty"`
}

func Idle() UpdateStatus    { return UpdateStatus{Kind: StatusIdle} }
func Loading() UpdateStatus { return UpdateStatus{Kind: StatusLoading} }
func Success() UpdateStatus { return UpdateStatus{Kind: StatusSuccess} }

func Failed(message string) UpdateStatus {
	return UpdateStatus{Kind: StatusError, Message: message}
}

func (s UpdateStatus) IsError() bool { return s.Kind == StatusError }

// ProfileState is a snapshot of everything the store owns.
type ProfileState struct {
	Profile *models.UserProfile `json:"profile"`
	Loading bool                `json:"loading"`
	Status  UpdateStatus        `json:"status"`
}

func (s ProfileState) clone() ProfileState {
	s.Profile = s.Profile.Clone()
	return s
}
