package index

import "github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"

// CampusIndex partitions campus-service documents by domain.
type CampusIndex struct {
	byDomain map[corpus.Domain]*Partition
	count    int
}

func newCampusIndex(docs []*corpus.Document) *CampusIndex {
	grouped := make(map[corpus.Domain][]*corpus.Document)
	for _, d := range docs {
		grouped[d.Domain] = append(grouped[d.Domain], d)
	}
	c := &CampusIndex{byDomain: make(map[corpus.Domain]*Partition, len(grouped)), count: len(docs)}
	for domain, list := range grouped {
		c.byDomain[domain] = newPartition(list)
	}
	return c
}

// Domain returns the partition for domain, or nil.
func (c *CampusIndex) Domain(domain corpus.Domain) *Partition {
	return c.byDomain[domain]
}

func (c *CampusIndex) Len() int { return c.count }
