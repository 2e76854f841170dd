package domain

import "strconv"

// ClusterID identifies one of the rule-based user segments.
type ClusterID int

const (
	ClusterFirstTimeAnxiety ClusterID = iota
	ClusterExperiencedComplex
	ClusterUrgentInsured
	ClusterFlexibleSelfPay
	ClusterCouplesFamily
	ClusterMedication
	ClusterTrauma
	ClusterGeneral
)

// ClusterCount is the number of defined clusters.
const ClusterCount = 8

var clusterNames = map[ClusterID]string{
	ClusterFirstTimeAnxiety:   "First-time, anxiety and stress",
	ClusterExperiencedComplex: "Experienced, complex needs",
	ClusterUrgentInsured:      "Urgent care, insured",
	ClusterFlexibleSelfPay:    "Flexible, self-pay",
	ClusterCouplesFamily:      "Couples and family",
	ClusterMedication:         "Medication management",
	ClusterTrauma:             "Trauma and PTSD",
	ClusterGeneral:            "General",
}

func (c ClusterID) Valid() bool {
	return c >= 0 && c < ClusterCount
}

func (c ClusterID) Name() string {
	if n, ok := clusterNames[c]; ok {
		return n
	}
	return "cluster " + strconv.Itoa(int(c))
}

// IDSet is a set of entity identifiers.
type IDSet map[string]struct{}

func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}
