package extract

import (
	"fmt"
	"strings"
)

// BuildExtractionPrompt renders the full ontologist prompt for one message.
func BuildExtractionPrompt(text string) string {
	var vocab strings.Builder
	for _, def := range PredicateVocabulary {
		fmt.Fprintf(&vocab, "  %s: %s\n", def.Name, def.Description)
	}

	return `You are an expert ontologist specializing in developer knowledge graphs. Your task is to extract factual technical relationships from the text below.

RULES:
1. Extract ONLY factual technical relationships stated or strongly implied in the text.
2. Use ONLY predicates from the vocabulary below — do not invent new predicates.
3. Normalize entity names to lowercase.
4. Skip messages about formatting, UI layout, greetings, pleasantries, or tool invocation mechanics.
5. Return [] for messages with no extractable technical knowledge.
6. Each triple must have "subject", "predicate", and "object" string fields.
7. Entity names MUST be 1-3 words maximum. Use the most common/recognized name for the technology, tool, or concept. NEVER use full phrases or descriptions as entity names.
8. Extract AT MOST 10 triples per message. If you identify more than 10 relationships, return only the top 10 most important ones. Prioritize relationships that capture architectural decisions, technology choices, and integration patterns over trivial implementation details.
   - GOOD entities: "neo4j", "python", "claude agent sdk", "urinary tract infection"
   - BAD entities: "notification when claude finishes responding", "follow-up if no improvement in 48h", "migration from npm to native"
   - If you can't name it in 1-3 words, it's not an entity — it's a description. Skip it.
8. Use "relatedTo" ONLY as a last resort when NO other predicate fits. Always prefer a specific predicate. Ask yourself: does X use Y? depend on Y? enable Y? integrate with Y? serve as Y? If any specific predicate applies, use it instead of relatedTo.
9. Respond with ONLY a JSON array of triple objects — no prose, no code fences, no wrapper object.

PREDICATE VOCABULARY:
` + strings.TrimRight(vocab.String(), "\n") + `

PREDICATE SELECTION GUIDE (to avoid overusing "relatedTo"):
- If X connects to or works with external system Y → use "integratesWith" (not relatedTo)
- If X is a kind/type/instance of category Y → use "isTypeOf" (not relatedTo)
- If X needs or depends on Y to function → use "requires" or "dependsOn" (not relatedTo)
- If X makes Y possible or supports Y → use "enables" (not relatedTo)
- If X can substitute for Y → use "alternativeTo" (not relatedTo)
- If X employs or leverages Y → use "uses" (not relatedTo)
- If X generates or creates Y → use "produces" (not relatedTo)
- If X handles or transforms Y → use "configures" or "produces" (not relatedTo)

EXAMPLES:

Input: "Prolog enables symbolic reasoning in neurosymbolic AI architectures"
Output: [{"subject":"prolog","predicate":"enables","object":"symbolic reasoning"},{"subject":"neurosymbolic ai","predicate":"composesWith","object":"prolog"}]

Input: "We chose Neo4j over PostgreSQL for the knowledge graph because it handles graph traversal natively"
Output: [{"subject":"neo4j","predicate":"solves","object":"graph traversal"},{"subject":"neo4j","predicate":"alternativeTo","object":"postgresql"},{"subject":"knowledge graph","predicate":"storesIn","object":"neo4j"}]

Input: "Docker Compose configures the Fuseki triple store running on port 3030"
Output: [{"subject":"docker compose","predicate":"configures","object":"fuseki"},{"subject":"fuseki","predicate":"isTypeOf","object":"triple store"}]

Input: "Let me adjust the layout to be wider with more spacing between elements"
Output: []

Input: "The Claude Agent SDK uses the Model Context Protocol to connect to external tools"
Output: [{"subject":"claude agent sdk","predicate":"uses","object":"model context protocol"},{"subject":"model context protocol","predicate":"enables","object":"external tool integration"}]

WRONG vs CORRECT (do NOT use relatedTo when a specific predicate fits):

Input: "The MCP adapter translates database queries into MCP-formatted requests"
WRONG:  [{"subject":"mcp adapter","predicate":"relatedTo","object":"db query"}]
CORRECT: [{"subject":"mcp adapter","predicate":"produces","object":"mcp-formatted request"},{"subject":"mcp adapter","predicate":"integratesWith","object":"database"}]

Input: "ProbLog is a probabilistic logic programming language based on Prolog"
WRONG:  [{"subject":"problog","predicate":"relatedTo","object":"prolog"}]
CORRECT: [{"subject":"problog","predicate":"isTypeOf","object":"probabilistic logic programming language"},{"subject":"problog","predicate":"extends","object":"prolog"}]

Input: "Tunnel architecture provides an alternative to reverse proxy for exposing services"
WRONG:  [{"subject":"tunnel architecture","predicate":"relatedTo","object":"reverse proxy"}]
CORRECT: [{"subject":"tunnel architecture","predicate":"alternativeTo","object":"reverse proxy"},{"subject":"tunnel architecture","predicate":"enables","object":"exposing services"}]

Now extract triples from this text:

` + text
}
