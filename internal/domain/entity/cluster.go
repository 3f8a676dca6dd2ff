package entity

// Cluster is a set of RawArticle record ids judged to cover the same
// real-world event. Ids are monotonically increasing across the lifetime of
// the group store; a persisted cluster always has at least two members.
type Cluster struct {
	ID      int
	Members []string
}

// Size returns the number of member records.
func (c *Cluster) Size() int {
	return len(c.Members)
}
