package challan

// Geometric gate for vehicle candidates. Contours smaller than this or
// with an implausible aspect ratio are discarded before estimation.
const (
	minRegionArea  = 1000.0
	minAspectRatio = 0.5
	maxAspectRatio = 2.5
)

// lengthFactor approximates vehicle length from estimated width; the
// camera faces the zone head-on and cannot measure depth.
const lengthFactor = 2.5

// FilterRegions keeps regions that pass the geometric vehicle gate:
// area above minRegionArea and width/height ratio within
// [minAspectRatio, maxAspectRatio]. The gate is a coarse heuristic;
// downstream stages tolerate false positives.
func FilterRegions(regions []Region) []Region {
	kept := make([]Region, 0, len(regions))
	for _, r := range regions {
		if r.Width <= 0 || r.Height <= 0 {
			continue
		}
		ratio := float64(r.Width) / float64(r.Height)
		if r.Area > minRegionArea && ratio >= minAspectRatio && ratio <= maxAspectRatio {
			kept = append(kept, r)
		}
	}
	return kept
}

// EstimateDimensions converts a region's pixel size into a real-world
// estimate using the pinhole relation real = pixel * distance / focal.
// It performs no clamping; implausible values fall through to the
// classifier's catch-all rule.
func EstimateDimensions(r Region, cam CameraParameters) Dimensions {
	width := float64(r.Width) * cam.Distance / cam.FocalLength
	height := float64(r.Height) * cam.Distance / cam.FocalLength
	return Dimensions{
		Width:  width,
		Height: height,
		Length: width * lengthFactor,
	}
}

// ClassifyVehicle maps dimensions to a vehicle type through ordered
// threshold rules. First match wins; the rule order is load-bearing at
// boundary values and must not be rearranged.
func ClassifyVehicle(d Dimensions) VehicleType {
	switch {
	case d.Width < 1.3 && d.Length < 2.5:
		return VehicleMotorcycle
	case d.Width < 2.0 && d.Height < 1.8 && d.Length < 5.0:
		return VehicleCar
	case d.Width < 2.3 && d.Height < 2.5 && d.Length < 6.0:
		return VehicleVan
	case d.Width < 2.6 && d.Height < 3.5 && d.Length < 12.0:
		return VehicleBus
	default:
		return VehicleTruck
	}
}

// FineAmount computes the challan amount as the violation amount plus
// the vehicle base fine. Both tables are fixed configuration data; the
// result is captured at challan creation and never recomputed.
func FineAmount(v ViolationType, t VehicleType) float64 {
	return violationClasses[v].Amount + vehicleClasses[t].BaseFine
}
