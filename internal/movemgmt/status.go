package movemgmt

import (
	"fmt"

	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

// wireStatuses maps portal move statuses to MoveMgmt's spelling. The mapping is
// a bijection; statusFromWire is its inverse.
var wireStatuses = map[models.MoveStatus]string{
	models.MoveStatusPending:    "Pending",
	models.MoveStatusScheduled:  "Scheduled",
	models.MoveStatusInProgress: "InProgress",
	models.MoveStatusCompleted:  "Completed",
	models.MoveStatusCancelled:  "Cancelled",
}

var statusFromWire = func() map[string]models.MoveStatus {
	m := make(map[string]models.MoveStatus, len(wireStatuses))
	for k, v := range wireStatuses {
		m[v] = k
	}
	return m
}()

// StatusToWire translates a portal move status to its wire value.
func StatusToWire(s models.MoveStatus) (string, error) {
	w, ok := wireStatuses[s]
	if !ok {
		return "", fmt.Errorf("unknown move status %q", s)
	}
	return w, nil
}

// StatusFromWire translates a wire move status to the portal value.
func StatusFromWire(w string) (models.MoveStatus, error) {
	s, ok := statusFromWire[w]
	if !ok {
		return "", fmt.Errorf("unknown wire move status %q", w)
	}
	return s, nil
}
