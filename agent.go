package flow

import "encoding/json"

// Agent is a declarative target for calls: a name, instructions, a model
// identifier, and an optional output schema. An Agent with a schema resolves
// calls to JSON conforming to it (decode via Result.Decode); without one it
// resolves to free text.
//
// Agent is a plain value; construct with a struct literal:
//
//	researcher := flow.Agent{
//		Name:         "researcher",
//		Instructions: "You research topics thoroughly.",
//		Model:        "gpt-4o-mini",
//	}
type Agent struct {
	Name         string          `json:"name"`
	Instructions string          `json:"instructions,omitempty"`
	Model        string          `json:"model,omitempty"`
	OutputSchema json.RawMessage `json:"output_schema,omitempty"`
}

// Call builds a Spec for one pending call to the agent. Building has no
// side effects; nothing executes until the Spec is forced with Run.
//
//	result, err := researcher.Call("What is Go?").Stream().Run(ctx)
func (a Agent) Call(input string) Spec {
	return Spec{agent: a, input: input}
}
