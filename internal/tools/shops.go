package tools

// Shop is a physical store location.
type Shop struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	MapsURL      string   `json:"maps_url"`
	OpeningHours string   `json:"opening_hours"`
	Phone        string   `json:"phone"`
	Services     []string `json:"services"`
	District     string   `json:"district"`
}

// DefaultShops is the built-in store directory.
func DefaultShops() []Shop {
	return []Shop{
		{
			ID:           1,
			Name:         "Hoàng Hà Mobile - Tam Trinh",
			Address:      "89 Đ. Tam Trinh, Mai Động, Hoàng Mai, Hà Nội 100000, Vietnam",
			MapsURL:      "https://maps.app.goo.gl/SitTbiYwUpu8jpeRA",
			OpeningHours: "8:30 AM–9:30 PM",
			Phone:        "024 3868 7777",
			Services:     []string{"Product consultation", "Warranty repair", "Technical support", "Home delivery"},
			District:     "Hoàng Mai",
		},
		{
			ID:           2,
			Name:         "Hoàng Hà Mobile - Nguyễn Công Trứ",
			Address:      "27A Nguyễn Công Trứ, Phạm Đình Hổ, Hai Bà Trưng, Hà Nội 100000, Vietnam",
			MapsURL:      "https://maps.app.goo.gl/3L7iSHpbHawsEaTx9",
			OpeningHours: "8:30 AM–9:30 PM",
			Phone:        "024 3974 7777",
			Services:     []string{"Product consultation", "Warranty repair", "Express delivery", "Trade-in service"},
			District:     "Hai Bà Trưng",
		},
		{
			ID:           3,
			Name:         "Hoàng Hà Mobile - Trương Định",
			Address:      "392 Đ. Trương Định, Tương Mai, Hoàng Mai, Hà Nội, Vietnam",
			MapsURL:      "https://maps.app.goo.gl/torAE2bHddW6nMPq9",
			OpeningHours: "8:30 AM–9:30 PM",
			Phone:        "024 3636 7777",
			Services:     []string{"Product consultation", "Warranty repair", "Technical support", "Pickup service"},
			District:     "Hoàng Mai",
		},
	}
}
