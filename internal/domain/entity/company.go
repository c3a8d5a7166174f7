package entity

import "time"

// Company es el tenant emisor de los documentos.
type Company struct {
	ID        string
	Name      string
	Matricule string // matricule fiscal tunecino, ver pkg/tn
	Address   string
	Phone     string
	Email     string
	Status    string // active, suspended
	CreatedAt time.Time
	UpdatedAt time.Time
}
