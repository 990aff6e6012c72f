// Package composer writes outreach messages for a client record.
package composer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crm-whatsapp/crm-service/internal/domain"
	"github.com/crm-whatsapp/crm-service/internal/llm"
)

// Generation policy. Not exposed to end users.
const (
	SystemRole  = "Consultor financeiro especialista em WhatsApp"
	Temperature = 0.4
	MaxTokens   = 150

	// FallbackMarker prefixes every message that was not produced by the model.
	FallbackMarker = "⚠️ Mensagem automática indisponível."
)

// Generator produces text for a prompt.
type Generator interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// Result is a composed message. Fallback is set when the generator failed.
type Result struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

// Composer builds prompts and degrades to a template on any generator failure.
type Composer struct {
	generator Generator
	logger    *zap.Logger
	now       func() time.Time
}

// New builds a composer.
func New(generator Generator, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{generator: generator, logger: logger, now: time.Now}
}

// Compose never returns an error; failures produce the fallback message.
func (c *Composer) Compose(ctx context.Context, client *domain.Client) Result {
	if c.generator == nil {
		return Result{Text: Fallback(client), Fallback: true}
	}

	text, err := c.generator.Complete(ctx, llm.Request{
		System:      SystemRole,
		Prompt:      BuildPrompt(client, c.now()),
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		c.logger.Warn("message generation failed, using fallback",
			zap.String("client_id", client.ID),
			zap.Error(err))
		return Result{Text: Fallback(client), Fallback: true}
	}
	return Result{Text: text}
}

// BuildPrompt renders the user turn for a client.
func BuildPrompt(client *domain.Client, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cliente: %s\n", client.Name)
	fmt.Fprintf(&b, "Produto: %s\n", orDash(client.ContractType))
	fmt.Fprintf(&b, "Banco: %s\n", orDash(client.Bank))
	fmt.Fprintf(&b, "Status: %s (%s)\n", client.Status, StatusPhrase(client.Status))
	fmt.Fprintf(&b, "Observações: %s\n", orDash(client.Notes))
	fmt.Fprintf(&b, "Data e hora atual: %s\n", now.Format("02/01/2006 15:04"))
	b.WriteString("Gere uma mensagem curta e profissional para enviar pelo WhatsApp.")
	return b.String()
}

// Fallback is the templated message used when generation is unavailable.
func Fallback(client *domain.Client) string {
	greeting := "Olá!"
	if name := firstName(client.Name); name != "" {
		greeting = fmt.Sprintf("Olá, %s!", name)
	}
	return fmt.Sprintf("%s %s Informamos que %s. Qualquer dúvida, estamos à disposição.",
		FallbackMarker, greeting, StatusPhrase(client.Status))
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
