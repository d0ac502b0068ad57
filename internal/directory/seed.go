package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var seedProviders = []ServiceProvider{
	{BusinessName: "Premier NYC Plumbing", Description: "Emergency and scheduled plumbing for homes and offices in Manhattan and Brooklyn.",
		Categories: []string{"Home Services"}, Location: "Manhattan, NY", Latitude: 40.7589, Longitude: -73.9851,
		Phone: "(212) 555-0123", Website: "https://premierplumbing.nyc", Rating: 4.9, ReviewCount: 467, Verified: true},
	{BusinessName: "Brooklyn Home Cleaners Pro", Description: "Deep cleaning, recurring cleaning and post-construction cleanup.",
		Categories: []string{"Home Services"}, Location: "Brooklyn, NY", Latitude: 40.6782, Longitude: -73.9442,
		Phone: "(718) 555-0456", Rating: 4.7, ReviewCount: 328, Verified: true},
	{BusinessName: "Elite Electrical Services NYC", Description: "Panel upgrades, rewiring and smart home installs across the five boroughs.",
		Categories: []string{"Home Services"}, Location: "Queens, NY", Latitude: 40.7282, Longitude: -73.7949,
		Phone: "(718) 555-0789", Rating: 4.8, ReviewCount: 291, Verified: true},
	{BusinessName: "Bronx HVAC Masters", Description: "Heating and air conditioning installation, repair and maintenance.",
		Categories: []string{"Home Services"}, Location: "Bronx, NY", Latitude: 40.8448, Longitude: -73.8648,
		Rating: 4.6, ReviewCount: 203, Verified: true},
	{BusinessName: "Manhattan Handyman Services", Description: "Furniture assembly, wall mounting and small repairs.",
		Categories: []string{"Home Services"}, Location: "Manhattan, NY", Latitude: 40.7831, Longitude: -73.9712,
		Rating: 4.4, ReviewCount: 156},
	{BusinessName: "Golden State Construction Co.", Description: "Residential additions, remodels and new builds.",
		Categories: []string{"Construction & Renovation"}, Location: "Los Angeles, CA", Latitude: 34.0522, Longitude: -118.2437,
		Rating: 4.9, ReviewCount: 203, Verified: true},
	{BusinessName: "Pacific Roofing Specialists", Description: "Roof repair and replacement, tile and shingle.",
		Categories: []string{"Construction & Renovation"}, Location: "Santa Monica, CA", Latitude: 34.0195, Longitude: -118.4912,
		Rating: 4.8, ReviewCount: 445, Verified: true},
	{BusinessName: "Hollywood Kitchen Remodeling", Description: "Cabinets, countertops and full kitchen renovations.",
		Categories: []string{"Construction & Renovation"}, Location: "Hollywood, CA", Latitude: 34.0928, Longitude: -118.3287,
		Rating: 4.7, ReviewCount: 234},
	{BusinessName: "Chicago Business Law Group", Description: "Formation, contracts and compliance for small businesses.",
		Categories: []string{"Professional Services"}, Location: "Chicago, IL", Latitude: 41.8781, Longitude: -87.6298,
		Rating: 4.9, ReviewCount: 124, Verified: true},
	{BusinessName: "Windy City Accounting Services", Description: "Bookkeeping, payroll and tax preparation.",
		Categories: []string{"Professional Services"}, Location: "Chicago, IL", Latitude: 41.8781, Longitude: -87.6298,
		Rating: 4.8, ReviewCount: 298, Verified: true},
	{BusinessName: "Bay Area Web Development", Description: "Websites and web apps for startups and local businesses.",
		Categories: []string{"Technology & IT", "Creative & Design"}, Location: "San Francisco, CA", Latitude: 37.7749, Longitude: -122.4194,
		Website: "https://bayareaweb.dev", Rating: 4.7, ReviewCount: 186, Verified: true},
	{BusinessName: "Silicon Valley IT Support", Description: "Managed IT, networking and help desk for small offices.",
		Categories: []string{"Technology & IT"}, Location: "San Jose, CA", Latitude: 37.3382, Longitude: -121.8863,
		Rating: 4.8, ReviewCount: 234, Verified: true},
	{BusinessName: "Oakland App Developers", Description: "iOS and Android apps from prototype to launch.",
		Categories: []string{"Technology & IT"}, Location: "Oakland, CA", Latitude: 37.8044, Longitude: -122.2711,
		Rating: 4.6, ReviewCount: 145},
}

// Seed loads the built-in directory listings into an empty store. It returns
// how many listings were inserted; a store that already has listings is left
// alone.
func Seed(ctx context.Context, store Store, now time.Time) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	for i, p := range seedProviders {
		p.ID = uuid.NewString()
		p.CreatedAt = now.UTC()
		if err := store.Create(ctx, &p); err != nil {
			return i, fmt.Errorf("seed %q: %w", p.BusinessName, err)
		}
	}
	return len(seedProviders), nil
}
