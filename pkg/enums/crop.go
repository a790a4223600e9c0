package enums

import (
	"fmt"
	"strings"
)

// CropStatus is the growth / sale stage of a crop listing.
type CropStatus string

const (
	CropStatusGrowing         CropStatus = "growing"
	CropStatusReadyForHarvest CropStatus = "ready_for_harvest"
	CropStatusHarvested       CropStatus = "harvested"
	CropStatusSoldOut         CropStatus = "sold_out"
)

var validCropStatuses = []CropStatus{
	CropStatusGrowing,
	CropStatusReadyForHarvest,
	CropStatusHarvested,
	CropStatusSoldOut,
}

// AllCropStatuses returns every crop status in lifecycle order.
func AllCropStatuses() []CropStatus {
	out := make([]CropStatus, len(validCropStatuses))
	copy(out, validCropStatuses)
	return out
}

func (s CropStatus) String() string {
	return string(s)
}

func (s CropStatus) IsValid() bool {
	for _, candidate := range validCropStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCropStatus converts raw input into a CropStatus.
func ParseCropStatus(value string) (CropStatus, error) {
	for _, candidate := range validCropStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid crop status %q", value)
}

// Unit is the measure a crop or product is sold in.
type Unit string

const (
	UnitKilogram Unit = "kg"
	UnitGram     Unit = "g"
	UnitTon      Unit = "ton"
	UnitPiece    Unit = "piece"
)

var validUnits = []Unit{UnitKilogram, UnitGram, UnitTon, UnitPiece}

func (u Unit) String() string {
	return string(u)
}

func (u Unit) IsValid() bool {
	for _, candidate := range validUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUnit converts raw input into a Unit.
func ParseUnit(value string) (Unit, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validUnits {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit %q", value)
}

// PlantingSeason is the season a crop was planted in.
type PlantingSeason string

const (
	SeasonSpring PlantingSeason = "spring"
	SeasonSummer PlantingSeason = "summer"
	SeasonFall   PlantingSeason = "fall"
	SeasonWinter PlantingSeason = "winter"
)

var validSeasons = []PlantingSeason{SeasonSpring, SeasonSummer, SeasonFall, SeasonWinter}

func (p PlantingSeason) IsValid() bool {
	for _, candidate := range validSeasons {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlantingSeason converts raw input into a PlantingSeason.
func ParsePlantingSeason(value string) (PlantingSeason, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validSeasons {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid planting season %q", value)
}
