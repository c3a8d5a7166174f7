package entity

import "time"

// SequenceCounter es el contador monotónico por (tenant, tipo).
// Value es el último número emitido; Base el primero que se emitirá.
type SequenceCounter struct {
	TenantID  string
	Kind      Kind
	Value     int64
	Base      int64
	UpdatedAt time.Time
}

// NumberingTemplate es el formato de numeración configurado por un tenant.
type NumberingTemplate struct {
	TenantID  string
	Kind      Kind
	Template  string // ej. FAC-{{YYYY}}-{{SEQ:5}}
	UpdatedAt time.Time
}
