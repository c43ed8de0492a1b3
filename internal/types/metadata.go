package types

// Metadata is a map of key-value pairs attached to domain entities
type Metadata map[string]string

// Merge returns a new Metadata with the values of m overridden by other
func (m Metadata) Merge(other Metadata) Metadata {
	merged := make(Metadata, len(m)+len(other))
	for k, v := range m {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}
