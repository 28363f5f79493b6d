package status

import (
	"database/sql/driver"
	"errors"
)

// Status represents the production stage of a lab order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProjetando Status = "projetando"
	StatusInProgress Status = "in-progress"
	StatusFinishing  Status = "finishing"
	StatusCompleted  Status = "completed"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var ErrInvalidStatus = errors.New("invalid status")

// labels is the single place the display mapping lives.
var labels = map[Status]string{
	StatusPending:    "Pendente",
	StatusProjetando: "Projetando",
	StatusInProgress: "Em Produção",
	StatusFinishing:  "Acabamento",
	StatusCompleted:  "Concluído",
	StatusDelivered:  "Entregue",
	StatusCancelled:  "Cancelado",
}

// ordered is the station sequence the production floor follows.
var ordered = []Status{
	StatusPending,
	StatusProjetando,
	StatusInProgress,
	StatusFinishing,
	StatusCompleted,
	StatusDelivered,
	StatusCancelled,
}

func (s Status) String() string {
	return string(s)
}

// Label returns the display label for the status.
func (s Status) Label() string {
	return labels[s]
}

func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// InProduction reports whether the status marks the start of production work.
func (s Status) InProduction() bool {
	return s == StatusProjetando || s == StatusInProgress
}

// ParseStatus validates a raw status value. Unknown values are rejected
// so they never reach storage.
func ParseStatus(s string) (Status, error) {
	if _, ok := labels[Status(s)]; !ok {
		return "", ErrInvalidStatus
	}

	return Status(s), nil
}

// All returns every known status in floor order.
func All() []Status {
	out := make([]Status, len(ordered))
	copy(out, ordered)

	return out
}
