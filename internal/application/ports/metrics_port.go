package ports

// Metrics es el puerto de salida hacia el sistema de métricas.
// La aplicación solo conoce este contrato; el adaptador prometheus vive en infrastructure.
type Metrics interface {
	NumberIssued(kind string)
	NumberingFailed(kind string)
	TotalsComputed(kind string)
	ValidationFailed(field string)
}

// NopMetrics descarta todas las observaciones (tests, herramientas offline).
type NopMetrics struct{}

func (NopMetrics) NumberIssued(string)     {}
func (NopMetrics) NumberingFailed(string)  {}
func (NopMetrics) TotalsComputed(string)   {}
func (NopMetrics) ValidationFailed(string) {}
