package assistant

import (
	"fmt"
	"strings"

	"github.com/omnicart/assistant/internal/knowledge"
	"github.com/omnicart/assistant/internal/retrieval"
)

// SystemPromptTemplate is the assistant persona and style contract. The
// retrieved context replaces the {{ retrieved_chunks }} placeholder.
const SystemPromptTemplate = `You are OmniCart Assistant, a friendly shopping guide.
Use the provided context to answer questions about products, shops, owners, or reviews.
Rules:
- Keep every answer concise, between 50 and 60 words.
- Avoid markdown emphasis and do not mention raw URLs or link syntax.
- Describe the most relevant product first, including name, price, stock, rating, and seller when available.
- Never mention or list sources, citations, or raw paths (such as /products/...).
- Do not ask the shopper if they want to continue; simply offer a clear recommendation.
- Mention similar options briefly only when helpful, without listing more than two.
- If information is missing, say: "I don't have that info right now. Please check the product page."
- Do NOT invent details that are not in the context.
Context:
{{ retrieved_chunks }}`

const contextPlaceholder = "{{ retrieved_chunks }}"

const emptyContextNote = "No relevant context was retrieved from the knowledge base."

// buildContextSection renders the retrieved entries for prompt interpolation,
// one "Product Insight:" or "Shop Insight:" block per entry.
func buildContextSection(entries []knowledge.Entry) string {
	if len(entries) == 0 {
		return emptyContextNote
	}
	sections := make([]string, len(entries))
	for i, entry := range entries {
		header := "Shop Insight:"
		if entry.Kind == knowledge.KindProduct {
			header = "Product Insight:"
		}
		sections[i] = header + "\n" + entry.Text
	}
	return strings.Join(sections, "\n\n")
}

// BuildSystemPrompt interpolates the retrieved context into the template and,
// when candidate products are available, appends an options block so the
// model can point the shopper at the provided buttons.
func BuildSystemPrompt(template string, entries []knowledge.Entry, products []retrieval.Product) string {
	prompt := strings.Replace(template, contextPlaceholder, buildContextSection(entries), 1)

	if len(products) > 3 {
		products = products[:3]
	}
	if len(products) > 0 {
		var lines []string
		for i, p := range products {
			lines = append(lines, fmt.Sprintf("Product %d: %s (%s)", i+1, p.Name, priceLabel(p)))
		}
		prompt += "\n\nCandidate options available to assist the shopper:\n" +
			strings.Join(lines, "\n") +
			"\nWhen relevant, describe these options and encourage the shopper to use the provided buttons."
	}
	return prompt
}
