package testfixtures

import "github.com/example/workplace-reservations/internal/persistence"

// SampleResources returns a small mixed catalog for tests and local seeding.
func SampleResources() []persistence.Resource {
	location := "本社 3F"
	facilities := "プロジェクター, ホワイトボード"
	plate := "品川 300 あ 12-34"
	fuel := "hybrid"
	transmission := "automatic"

	now := ReferenceTime()
	return []persistence.Resource{
		{
			ID:         "room-a",
			Kind:       persistence.ResourceKindRoom,
			Name:       "会議室A",
			Location:   &location,
			Capacity:   8,
			Facilities: &facilities,
			CreatedAt:  now,
			UpdatedAt:  now,
		},
		{
			ID:        "room-b",
			Kind:      persistence.ResourceKindRoom,
			Name:      "会議室B",
			Capacity:  4,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:           "vehicle-1",
			Kind:         persistence.ResourceKindVehicle,
			Name:         "社用車1",
			PlateNumber:  &plate,
			FuelType:     &fuel,
			Transmission: &transmission,
			CreatedAt:    now,
			UpdatedAt:    now,
		},
	}
}
