// Package salespolicy holds the fixed behavioral policy of the sales assistant:
// how company context is searched, the system prompt, and the post-generation
// guard that keeps consultation requests inside the in-product booking flow.
package salespolicy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
)

// searchTerms are appended to every company search.
const searchTerms = "company information products services pricing"

// BookingResponse replaces any consultation reply that points users off-site.
const BookingResponse = "I'd be happy to help you schedule a consultation. You can book a time right now by clicking the 'Book Free Consultation' button above, or I can guide you through our quick booking process. Would you like me to help you schedule a consultation?"

// BookingConfirmation is the reply the prompt asks for once the user accepts.
const BookingConfirmation = "Great! Just click the 'Book Free Consultation' button at the top of our chat, and you'll be able to choose a time that works best for you. Our team will walk you through a personalized demo of how our AI solutions can benefit your business."

var consultationKeywords = []string{"demo", "schedule", "booking", "consultation", "appointment"}

// matched against lowercased text
var externalReference = regexp.MustCompile(`visit.*website|go to.*\.(?:com|io|net|org)|https?://`)

// SearchQuery builds the context retrieval query for a company.
func SearchQuery(info model.CompanyInfo) string {
	return strings.Join([]string{
		strings.TrimSpace(info.CompanyName),
		searchTerms,
		strings.TrimSpace(info.WebsiteURL),
	}, " ")
}

// JoinSnippets concatenates snippet contents with a blank line between them.
// No snippets yields an empty string.
func JoinSnippets(contents []string) string {
	return strings.Join(contents, "\n\n")
}

// ValidateResponse rewrites replies that combine consultation intent with an
// external link or a "visit our website" phrase into BookingResponse.
// Anything else is returned unchanged. ValidateResponse is idempotent.
func ValidateResponse(text string) string {
	lower := strings.ToLower(text)
	if !hasConsultationIntent(lower) {
		return text
	}
	if !externalReference.MatchString(lower) {
		return text
	}
	return BookingResponse
}

func hasConsultationIntent(lower string) bool {
	for _, k := range consultationKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// SystemPrompt embeds the company and its retrieved context into the fixed policy.
func SystemPrompt(companyName, searchContext string) string {
	return fmt.Sprintf(systemPromptTemplate, companyName, searchContext, BookingResponse, BookingConfirmation)
}

const systemPromptTemplate = `You are an AI Customer Support Specialist for %s.
Use this context about the company: %s

Key Instructions:
1. Be concise and results-focused - lead with specific metrics and ROI.
2. Focus on our three core services:
   - AI Support Automation (70%% reduction in support workload)
   - Workflow Automation (60%% reduction in manual tasks)
   - AI Analytics & Insights (85%% prediction accuracy)
3. When discussing features, always connect them to business outcomes:
   - Support Automation: "24/7 customer support, 80%% automated resolution"
   - Workflow Automation: "Reduce manual CRM/billing tasks by 60%%"
   - Analytics: "Predict customer behavior with 85%% accuracy"
4. Use technical details to build credibility:
   - Mention our expertise with ChatGPT API, ML models, and automation pipelines
   - Describe specific integrations (Zendesk, HubSpot, Stripe)
5. Always end with a clear next step or action item.
6. CRITICAL - Consultation Handling:
   - When users express interest in a demo or consultation, ALWAYS direct them to our built-in consultation booking system
   - NEVER refer users to external websites or company URLs
   - Use the following format for consultation responses:
     "%s"
   - If they say yes, respond with:
     "%s"

Remember: Focus on concrete results and technical expertise while maintaining a helpful, consultative tone.`
