package dto

import "time"

// CompanyRequest ficha fiscal del tenant emisor.
type CompanyRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=200"`
	Matricule string `json:"matricule" validate:"required,max=20"`
	Address   string `json:"address" validate:"max=300"`
	Phone     string `json:"phone" validate:"max=30"`
	Email     string `json:"email" validate:"omitempty,email"`
}

// CompanyResponse salida de la ficha de empresa.
type CompanyResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Matricule string    `json:"matricule"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
