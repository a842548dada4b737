// Package classify maps free-text incident descriptions to a crime category.
//
// Classification is two-tier: a constrained GenAI prompt when a generator is
// configured, with a deterministic keyword fallback that is always available.
// The call must never block or fail on classification, so any model error or
// malformed model output silently degrades to the keyword path. The same
// generator backs the optional description rewrite, with the raw text kept
// on any failure.
package classify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/safeline/helpline/internal/genai"
	"github.com/safeline/helpline/internal/models"
)

// categoryKeywords associates each category with its indicator terms, in
// enum declaration order. Scoring counts distinct matching terms; ties keep
// the earlier category.
var categoryKeywords = []struct {
	crime models.CrimeType
	words []string
}{
	{models.CrimeTypeScam, []string{"scam", "lottery", "prize", "won", "winner", "investment", "money"}},
	{models.CrimeTypePhishing, []string{"phishing", "phish", "suspicious link", "otp", "verification code", "fake website"}},
	{models.CrimeTypeHarassment, []string{"harass", "bully", "stalk", "abusive", "threatening messages"}},
	{models.CrimeTypeHacking, []string{"hack", "hacked", "facebook", "instagram", "account", "unauthorized", "password"}},
	{models.CrimeTypeDoxxing, []string{"dox", "leaked", "personal information", "address posted"}},
	{models.CrimeTypeFraud, []string{"fraud", "credit card", "debit card", "transaction", "upi", "bank transfer"}},
}

const classifierSystemPrompt = "You classify cybercrime reports. Respond with exactly one word from this list and nothing else: scam, phishing, harassment, hacking, doxxing, fraud, other."

// Classifier assigns a crime category to a description.
type Classifier struct {
	gen genai.Generator
}

// New creates a classifier. The generator may be nil, in which case only the
// keyword fallback is used.
func New(gen genai.Generator) *Classifier {
	return &Classifier{gen: gen}
}

// Classify returns the category for a description. It always succeeds.
func (c *Classifier) Classify(ctx context.Context, description string) models.CrimeType {
	if c.gen != nil {
		if crime, ok := c.classifyWithModel(ctx, description); ok {
			return crime
		}
	}
	return KeywordClassify(description)
}

// classifyWithModel asks the generator for a single category word. Anything
// other than an exact enum match falls through to the keyword path.
func (c *Classifier) classifyWithModel(ctx context.Context, description string) (models.CrimeType, bool) {
	response, err := c.gen.Generate(ctx, classifierSystemPrompt, description)
	if err != nil {
		slog.Warn("Classifier.classifyWithModel: generator failed, using keyword fallback", "error", err)
		return "", false
	}
	token := models.CrimeType(strings.ToLower(strings.Trim(response, " \t\n.!\"'")))
	if !models.IsValidCrimeType(token) {
		slog.Warn("Classifier.classifyWithModel: unusable model output, using keyword fallback", "response", response)
		return "", false
	}
	slog.Debug("Classifier.classifyWithModel: classified", "crimeType", token)
	return token, true
}

const rewriteSystemPrompt = "You work for a cybercrime helpline. Rewrite the caller's incident description as one or two clear, professional sentences. Keep every fact the caller stated and add nothing. Respond with the rewritten description only."

// minRewriteLength filters out fragments the model sometimes returns in
// place of a real rewrite.
const minRewriteLength = 20

// RewriteDescription returns a cleaned-up wording of a raw incident
// description. The raw text is kept whenever no generator is configured, the
// generator fails, or the output is trivial or merely echoes the input.
func (c *Classifier) RewriteDescription(ctx context.Context, raw string) string {
	if c.gen == nil {
		return raw
	}
	out, err := c.gen.Generate(ctx, rewriteSystemPrompt, raw)
	if err != nil {
		slog.Warn("Classifier.RewriteDescription: generator failed, keeping raw description", "error", err)
		return raw
	}
	out = strings.TrimSpace(out)
	if len(out) < minRewriteLength || strings.EqualFold(out, strings.TrimSpace(raw)) {
		return raw
	}
	return out
}

// KeywordClassify scores each category by counting its keywords appearing as
// substrings of the lowercased description. The highest nonzero score wins;
// no match yields CrimeTypeOther.
func KeywordClassify(description string) models.CrimeType {
	lowered := strings.ToLower(description)
	best := models.CrimeTypeOther
	bestScore := 0
	for _, entry := range categoryKeywords {
		score := 0
		for _, word := range entry.words {
			if strings.Contains(lowered, word) {
				score++
			}
		}
		if score > bestScore {
			best = entry.crime
			bestScore = score
		}
	}
	return best
}
