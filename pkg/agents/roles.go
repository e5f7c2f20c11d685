// SPDX-License-Identifier: Apache-2.0
package agents

import (
	m "github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/messaging"
	"github.com/bestacio89/ArchenaAI.Common.Semantic.Kernel/pkg/orchestration"
)

// Role names.
const (
	RoleARAS              = "aras"
	RoleCompliance        = "compliance"
	RoleDataEngineer      = "data-engineer"
	RoleDevOps            = "devops"
	RoleDocumentation     = "documentation"
	RoleMemoryIndexer     = "memory.indexer"
	RoleSRE               = "sre"
	RoleSoftwareArchitect = "software-architect"
)

func loop(max int, memory bool, pattern string) orchestration.LoopOptions {
	return orchestration.LoopOptions{
		MaxIterations:      max,
		UseMemory:          memory,
		UseReflection:      true,
		UseCorrection:      true,
		TerminationPattern: pattern,
	}
}

// DefaultProfiles returns the built-in roles.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:         RoleARAS,
			Description:  "Architecture rules and safety enforcement.",
			Capabilities: []m.MessageType{m.MessageComplianceCheck, m.MessagePolicyEvaluation, m.MessageRequest, m.MessageThink},
			Loop:         loop(3, false, ""),
			Prompt: `You are the ARAS Agent (Architecture Rules And Safety).
Your job:
 - Enforce system constraints
 - Validate architecture decisions
 - Detect unsafe or non-compliant patterns
 - Ensure domain rules are respected

Payload:
{{.Payload}}`,
		},
		{
			Name:        RoleCompliance,
			Description: "Compliance and governance evaluation.",
			Loop:        loop(4, true, `\b(compliance verdict|final assessment|go/no-go decision)\b`),
			Prompt: `You are the ArchenaAI Compliance and Governance Agent.
You evaluate:
- Alignment with architecture rules
- Regulatory and organizational constraints
- Security, privacy, and operational risk implications
- Whether a proposal is acceptable, needs revision, or should be rejected

User task:
{{.Payload}}`,
		},
		{
			Name:         RoleDataEngineer,
			Description:  "Data pipelines and data models.",
			Capabilities: []m.MessageType{m.MessageAct, m.MessageRequest, m.MessageThink},
			Loop:         loop(4, true, `\b(final data model|final pipeline|etl design complete)\b`),
			Prompt: `You are the ArchenaAI Data Engineer Agent.
You reason about:
- Data pipelines (batch and streaming)
- Data models (OLTP, OLAP, star/snowflake schemas)
- Topics, message contracts, and lake/warehouse integration
- Performance, governance, and reliability of data flows

User task:
{{.Payload}}`,
		},
		{
			Name:         RoleDevOps,
			Description:  "CI/CD, infrastructure as code and deployments.",
			Capabilities: []m.MessageType{m.MessageAct, m.MessageDevOpsTask, m.MessageRequest},
			Loop:         loop(3, true, `\b(final pipeline|final yaml|deployment plan complete)\b`),
			Prompt: `You are the ArchenaAI DevOps Agent.
You design and reason about:
- CI/CD pipelines
- Infrastructure as code
- Observability, deployment strategies, and rollbacks

User task:
{{.Payload}}`,
		},
		{
			Name:         RoleDocumentation,
			Description:  "Technical documentation and decision records.",
			Capabilities: []m.MessageType{m.MessageRequest, m.MessageThink, m.MessageAct, m.MessageNormalize, m.MessageDocumentation},
			Loop:         loop(3, true, `\b(end of document|end of doc|final documentation)\b`),
			Prompt: `You are the ArchenaAI Documentation Agent.
You produce:
- Clear, structured technical documentation
- Architecture decision records (ADR)
- High-level and low-level design descriptions
- API docs, sequence explanations, and operational guides

User task:
{{.Payload}}`,
		},
		{
			Name:         RoleMemoryIndexer,
			Description:  "Normalizes and indexes content for long-term memory.",
			Capabilities: []m.MessageType{m.MessageMemoryIndex, m.MessageMemoryStore, m.MessageMemorySearch, m.MessageNormalize},
			Loop:         loop(3, false, `^(done|complete|indexed)$`),
			Prompt: `You are the Memory Indexer Agent of ArchenaAI.
Your job is STRICTLY to:
1. Normalize the text
2. Extract meaning and structure
3. Identify important metadata and topics
4. Detect duplication patterns
5. Prepare the content for long-term storage
6. Produce a clean, machine-optimized version of the content

NEVER hallucinate.
NEVER expand the content.
NEVER rewrite creatively.
ONLY CLEAN, COMPRESS, TAG, STRUCTURE.

Return output in this JSON structure:
{
  "normalized": "clean text...",
  "topics": ["tag1", "tag2"],
  "summary": "short compression",
  "deduplicationHash": "hash-of-meaning",
  "metadata": {
      "sourceAgent": "{{.Sender}}",
      "correlationId": "{{.CorrelationID}}"
  }
}

CONTENT TO INDEX:
-----------------
{{.Payload}}`,
		},
		{
			Name:         RoleSRE,
			Description:  "Incident diagnosis and reliability.",
			Capabilities: []m.MessageType{m.MessageIncident, m.MessageLogAnalysis, m.MessageRequest, m.MessageThink, m.MessageAct},
			Loop:         loop(4, true, ""),
			Prompt: `You are the SRE Agent in the ArchenaAI ecosystem.
Your duties:
 - Diagnose incidents
 - Interpret logs
 - Detect reliability issues
 - Recommend recovery actions
 - Improve resilience

User payload:
{{.Payload}}`,
		},
		{
			Name:         RoleSoftwareArchitect,
			Description:  "Event-driven, service-oriented architecture design.",
			Capabilities: []m.MessageType{m.MessageRequest, m.MessageThink, m.MessageAct},
			Loop:         loop(4, true, `\b(final architecture|final design|end of proposal)\b`),
			Prompt: `You are the ArchenaAI Software Architect Agent.
You design event-driven, microservice-based architectures with:
- Clean Architecture, DDD, CQRS, resilience and observability
- Message-first integration, multi-tenant SaaS and deterministic governance

User task:
{{.Payload}}`,
		},
	}
}
