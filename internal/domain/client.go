package domain

import "time"

// ClientStatus is a funnel stage.
type ClientStatus string

const (
	StatusEmAnalise            ClientStatus = "em análise"
	StatusSolicitarFatura      ClientStatus = "solicitar fatura"
	StatusBoletoQuitacao       ClientStatus = "boleto de quitação"
	StatusAguardandoAverbacao  ClientStatus = "aguardando averbação"
	StatusAguardandoLiquidacao ClientStatus = "aguardando liquidação"
	StatusFechado              ClientStatus = "fechado"
	StatusCancelado            ClientStatus = "cancelado"
)

// Statuses lists every funnel stage in display order.
var Statuses = []ClientStatus{
	StatusEmAnalise,
	StatusSolicitarFatura,
	StatusBoletoQuitacao,
	StatusAguardandoAverbacao,
	StatusAguardandoLiquidacao,
	StatusFechado,
	StatusCancelado,
}

// ContractTypes are the product types offered by the create form.
// The column is free text, so other values are accepted.
var ContractTypes = []string{"cartão", "consignado", "empréstimo", "saque", "benefício", "crédito"}

// Valid reports whether s belongs to the funnel.
func (s ClientStatus) Valid() bool {
	return s.Rank() < len(Statuses)
}

// Rank is the position of s in the funnel. Unknown values rank after every known stage.
func (s ClientStatus) Rank() int {
	for i, status := range Statuses {
		if status == s {
			return i
		}
	}
	return len(Statuses)
}

// Priority bounds.
const (
	MinPriority = 1
	MaxPriority = 3
)

// Client is a tracked lead or customer.
type Client struct {
	ID            string
	Name          string
	Phone         string
	Document      string
	Bank          string
	ContractType  string
	Status        ClientStatus
	Notes         string
	Owner         string
	Priority      *int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastContactAt *time.Time
}
