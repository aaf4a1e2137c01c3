package campaign

import "fmt"

// CatalogBuilding describes a building the landing page knows about.
type CatalogBuilding struct {
	Name    string
	Slug    string
	Address string
}

// CatalogService describes a purchasable service and its group-buy threshold.
type CatalogService struct {
	Type      string
	Slug      string
	MinOrders int
}

var buildings = []CatalogBuilding{
	{Name: "헬리오시티", Slug: "helio", Address: "서울특별시 강남구"},
	{Name: "양평벽산블루밍", Slug: "yangpyeong", Address: "서울특별시 양평구"},
}

var services = []CatalogService{
	{Type: "유리청소", Slug: "glass-cleaning", MinOrders: 20},
	{Type: "방충망 보수", Slug: "mosquito-net", MinOrders: 15},
	{Type: "에어컨 청소", Slug: "ac-cleaning", MinOrders: 25},
}

// Buildings returns the catalog buildings in display order.
func Buildings() []CatalogBuilding {
	out := make([]CatalogBuilding, len(buildings))
	copy(out, buildings)
	return out
}

// Services returns the catalog services in display order.
func Services() []CatalogService {
	out := make([]CatalogService, len(services))
	copy(out, services)
	return out
}

func LookupBuilding(name string) (CatalogBuilding, error) {
	for _, b := range buildings {
		if b.Name == name {
			return b, nil
		}
	}
	return CatalogBuilding{}, fmt.Errorf("%w: %q", ErrUnknownBuilding, name)
}

func LookupService(serviceType string) (CatalogService, error) {
	for _, s := range services {
		if s.Type == serviceType {
			return s, nil
		}
	}
	return CatalogService{}, fmt.Errorf("%w: %q", ErrUnknownService, serviceType)
}

// DeriveCampaignID maps a (building, service) pair to its campaign id, e.g. "helio-glass-cleaning".
// The mapping is pure: the same inputs always produce the same id without touching storage.
func DeriveCampaignID(buildingName, serviceType string) (string, error) {
	b, err := LookupBuilding(buildingName)
	if err != nil {
		return "", err
	}
	s, err := LookupService(serviceType)
	if err != nil {
		return "", err
	}
	return b.Slug + "-" + s.Slug, nil
}

// BuildingForCampaign resolves the catalog building a derived campaign id belongs to.
func BuildingForCampaign(campaignID string) (CatalogBuilding, bool) {
	for _, b := range buildings {
		for _, s := range services {
			if campaignID == b.Slug+"-"+s.Slug {
				return b, true
			}
		}
	}
	return CatalogBuilding{}, false
}
