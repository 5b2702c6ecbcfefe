package loam

// NodeMetadata is the frontmatter of one decision-graph node.
// The markdown body is the node's content.
//
//	---
//	id: corte-q1
//	kind: question
//	emergency: Cortes y Raspaduras Menores
//	yes: [corte-s-presion]
//	no: [corte-s-lavar]
//	---
//	¿La herida sangra abundantemente?
type NodeMetadata struct {
	ID        string   `json:"id" yaml:"id" mapstructure:"id"`
	Kind      string   `json:"kind" yaml:"kind" mapstructure:"kind"`
	Emergency string   `json:"emergency" yaml:"emergency" mapstructure:"emergency"`
	Order     int      `json:"order,omitempty" yaml:"order,omitempty" mapstructure:"order,omitempty"`
	Yes       []string `json:"yes,omitempty" yaml:"yes,omitempty" mapstructure:"yes,omitempty"`
	No        []string `json:"no,omitempty" yaml:"no,omitempty" mapstructure:"no,omitempty"`
	Next      []string `json:"next,omitempty" yaml:"next,omitempty" mapstructure:"next,omitempty"`
}
