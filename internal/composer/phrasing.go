package composer

import "github.com/crm-whatsapp/crm-service/internal/domain"

var statusPhrases = map[domain.ClientStatus]string{
	domain.StatusEmAnalise:            "sua proposta está em análise pela nossa equipe",
	domain.StatusSolicitarFatura:      "precisamos da fatura para dar andamento à proposta",
	domain.StatusBoletoQuitacao:       "o boleto de quitação já está sendo providenciado",
	domain.StatusAguardandoAverbacao:  "o contrato está aguardando averbação",
	domain.StatusAguardandoLiquidacao: "estamos aguardando a liquidação do contrato",
	domain.StatusFechado:              "o contrato foi concluído com sucesso",
	domain.StatusCancelado:            "a proposta foi cancelada",
}

const unknownStatusPhrase = "gostaríamos de atualizar você sobre o andamento da sua solicitação"

// StatusPhrase describes a funnel stage in customer-facing language.
func StatusPhrase(status domain.ClientStatus) string {
	if phrase, ok := statusPhrases[status]; ok {
		return phrase
	}
	return unknownStatusPhrase
}
