package prefill

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

const agentSystemPrompt = `You gather known data for an insurance application before the intake conversation starts.

Use the lookup tools to consult every source that is relevant to the request. Consolidate everything into a single flat object keyed by application field id. When two sources disagree, prefer the more recent or more authoritative one. Keep only concrete values; never invent data.

When you have consulted the relevant sources, call report_prefill_results exactly once with the consolidated data. Do not reply with plain text.`

func requestMessage(req Request) *schema.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Prefill the application for client %s.", req.ClientID)
	if req.AdvisorID != "" {
		fmt.Fprintf(&b, " The advisor is %s.", req.AdvisorID)
	}
	if req.CarrierID != "" {
		fmt.Fprintf(&b, " The carrier is %s; check suitability once you have financial data.", req.CarrierID)
	}
	if req.Document != nil {
		b.WriteString(" A scanned document is attached; read its fields and record them with extract_document_fields.")
	}

	msg := schema.UserMessage(b.String())
	if req.Document != nil {
		msg.MultiContent = []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: b.String()},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", req.Document.MediaType, req.Document.Base64),
				},
			},
		}
	}
	return msg
}
