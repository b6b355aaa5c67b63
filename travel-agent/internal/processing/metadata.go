package processing

// Node is one record of the travel dataset.
type Node struct {
	ID           string       `json:"id"`
	Type         string       `json:"type"`
	Name         string       `json:"name"`
	City         string       `json:"city,omitempty"`
	Region       string       `json:"region,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	Description  string       `json:"description,omitempty"`
	SemanticText string       `json:"semantic_text,omitempty"`
	Connections  []Connection `json:"connections,omitempty"`
}

// Connection is an outgoing relationship, e.g. {"relation": "Located_In", "target": "city_hanoi"}.
type Connection struct {
	Relation string `json:"relation"`
	Target   string `json:"target"`
}

// Metadata is what the vector index stores and returns for a record.
type Metadata struct {
	ID   string   `json:"id"`
	Type string   `json:"type"`
	Name string   `json:"name"`
	City string   `json:"city"`
	Tags []string `json:"tags"`
}

func MetadataOf(n Node) Metadata {
	city := n.City
	if city == "" {
		city = n.Region
	}
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return Metadata{ID: n.ID, Type: n.Type, Name: n.Name, City: city, Tags: tags}
}
