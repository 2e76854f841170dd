package service

import (
	"sort"

	"github.com/lunajoy/matchengine/internal/domain"
)

const (
	// DefaultClusterBoost multiplies the score of a cluster favourite.
	DefaultClusterBoost = 1.15
	// DefaultFavoritesPerCluster caps how many favourites a cluster keeps.
	DefaultFavoritesPerCluster = 10

	bookedFavoriteWeight    = 3
	contactedFavoriteWeight = 2
)

var (
	traumaNeeds  = []string{"trauma", "ptsd", "abuse"}
	couplesNeeds = []string{"couples", "family", "relationships"}
	anxietyNeeds = []string{"anxiety", "stress"}
	complexNeeds = []string{"bipolar", "ocd", "addiction", "eating_disorders", "personality_disorders", "complex"}
)

// AssignCluster places a request into a rule-based segment. Rules are
// checked in priority order and the first match wins.
func AssignCluster(req *domain.MatchRequest) domain.ClusterID {
	prefs := req.Preferences
	experience := req.Experience()

	switch {
	case prefs.AppointmentType == domain.AppointmentMedication:
		return domain.ClusterMedication
	case prefs.HasNeed(traumaNeeds...):
		return domain.ClusterTrauma
	case prefs.Urgency() == domain.UrgencyImmediate && prefs.HasInsurance():
		return domain.ClusterUrgentInsured
	case !prefs.HasInsurance() && prefs.Urgency() == domain.UrgencyFlexible:
		return domain.ClusterFlexibleSelfPay
	case prefs.HasNeed(couplesNeeds...):
		return domain.ClusterCouplesFamily
	case experience == domain.ExperienceFirstTime && prefs.HasNeed(anxietyNeeds...):
		return domain.ClusterFirstTimeAnxiety
	case (experience == domain.ExperienceSome || experience == domain.ExperienceSeasoned) &&
		(len(canonical(prefs.ClinicalNeeds)) >= 2 || prefs.HasNeed(complexNeeds...)):
		return domain.ClusterExperiencedComplex
	default:
		return domain.ClusterGeneral
	}
}

// AggregateFavorites ranks, per cluster, the clinicians most often booked
// or contacted by the cluster's registered users. Bookings weigh 3 and
// contacts 2; ties go to the lower clinician id.
func AggregateFavorites(users []domain.User, interactions []domain.Interaction, perCluster int) map[domain.ClusterID][]string {
	if perCluster <= 0 {
		perCluster = DefaultFavoritesPerCluster
	}

	clusterOf := make(map[string]domain.ClusterID, len(users))
	for i := range users {
		req := domain.RequestFor(&users[i])
		clusterOf[users[i].ID] = AssignCluster(&req)
	}

	weights := make(map[domain.ClusterID]map[string]int)
	for _, in := range interactions {
		cluster, ok := clusterOf[in.UserID]
		if !ok {
			continue
		}
		var w int
		switch in.Action {
		case domain.ActionBooked:
			w = bookedFavoriteWeight
		case domain.ActionContacted:
			w = contactedFavoriteWeight
		default:
			continue
		}
		if weights[cluster] == nil {
			weights[cluster] = make(map[string]int)
		}
		weights[cluster][in.ClinicianID] += w
	}

	result := make(map[domain.ClusterID][]string, len(weights))
	for cluster, byClinician := range weights {
		ids := make([]string, 0, len(byClinician))
		for id := range byClinician {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool {
			wi, wj := byClinician[ids[i]], byClinician[ids[j]]
			if wi != wj {
				return wi > wj
			}
			return ids[i] < ids[j]
		})
		if len(ids) > perCluster {
			ids = ids[:perCluster]
		}
		result[cluster] = ids
	}
	return result
}
