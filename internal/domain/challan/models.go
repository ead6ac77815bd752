package challan

import (
	"time"
)

// VehicleType is a closed set of vehicle categories produced by the
// classifier. Each type carries a base fine component.
type VehicleType string

const (
	VehicleMotorcycle VehicleType = "MOTORCYCLE"
	VehicleCar        VehicleType = "CAR"
	VehicleVan        VehicleType = "VAN"
	VehicleBus        VehicleType = "BUS"
	VehicleTruck      VehicleType = "TRUCK"
)

// VehicleClass holds the lookup data associated with a VehicleType.
type VehicleClass struct {
	BaseFine    float64 `json:"base_fine"`
	Description string  `json:"description"`
}

var vehicleClasses = map[VehicleType]VehicleClass{
	VehicleMotorcycle: {BaseFine: 200, Description: "Two-wheeler"},
	VehicleCar:        {BaseFine: 500, Description: "Light motor vehicle"},
	VehicleVan:        {BaseFine: 700, Description: "Light commercial vehicle"},
	VehicleBus:        {BaseFine: 1000, Description: "Passenger transport vehicle"},
	VehicleTruck:      {BaseFine: 1500, Description: "Heavy goods vehicle"},
}

// VehicleTypes lists every enumerated vehicle type in classifier order.
func VehicleTypes() []VehicleType {
	return []VehicleType{VehicleMotorcycle, VehicleCar, VehicleVan, VehicleBus, VehicleTruck}
}

func (t VehicleType) IsValid() bool {
	_, ok := vehicleClasses[t]
	return ok
}

func (t VehicleType) Class() VehicleClass {
	return vehicleClasses[t]
}

// ViolationType is a closed set of violation categories. Automatically
// detected events always carry ViolationNoEntry; manual entry may pick
// any enumerated type.
type ViolationType string

const (
	ViolationNoEntry      ViolationType = "NO_ENTRY_ZONE"
	ViolationWrongParking ViolationType = "WRONG_PARKING"
	ViolationSignalJump   ViolationType = "SIGNAL_JUMP"
	ViolationOverSpeeding ViolationType = "OVER_SPEEDING"
)

// ViolationClass holds the lookup data associated with a ViolationType.
type ViolationClass struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

var violationClasses = map[ViolationType]ViolationClass{
	ViolationNoEntry:      {Amount: 1000, Description: "Entering a no-entry restricted zone"},
	ViolationWrongParking: {Amount: 500, Description: "Parking in a prohibited area"},
	ViolationSignalJump:   {Amount: 1500, Description: "Crossing on a red signal"},
	ViolationOverSpeeding: {Amount: 2000, Description: "Exceeding the posted speed limit"},
}

// ViolationTypes lists every enumerated violation type.
func ViolationTypes() []ViolationType {
	return []ViolationType{ViolationNoEntry, ViolationWrongParking, ViolationSignalJump, ViolationOverSpeeding}
}

func (v ViolationType) IsValid() bool {
	_, ok := violationClasses[v]
	return ok
}

func (v ViolationType) Class() ViolationClass {
	return violationClasses[v]
}

// ChallanStatus is the payment state of a challan. The only legal
// transition is Pending -> Paid.
type ChallanStatus string

const (
	StatusPending ChallanStatus = "PENDING"
	StatusPaid    ChallanStatus = "PAID"
)

// PaymentMethod identifies how a challan was settled.
type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "CARD"
	PaymentWallet PaymentMethod = "WALLET"
)

func (m PaymentMethod) IsValid() bool {
	return m == PaymentCard || m == PaymentWallet
}

// CameraParameters describe the fixed camera monitoring a zone.
// Immutable for the lifetime of a capture session.
type CameraParameters struct {
	FocalLength float64 `json:"focal_length"`
	SensorWidth float64 `json:"sensor_width"`
	Distance    float64 `json:"distance"`
}

// Region is a vehicle candidate bounding box in pixel space.
type Region struct {
	X      int     `json:"x"`
	Y      int     `json:"y"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Area   float64 `json:"area"`
}

// Dimensions is a real-world size estimate in meters. Derived once,
// never mutated.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Length float64 `json:"length"`
}

// DetectionResult is the transient outcome of one successful frame
// cycle for one region. It is either discarded or promoted into a
// Challan.
type DetectionResult struct {
	VehicleNumber string      `json:"vehicle_number"`
	VehicleType   VehicleType `json:"vehicle_type"`
	Dimensions    Dimensions  `json:"dimensions"`
	Region        Region      `json:"region"`
	Confidence    float64     `json:"confidence"`
}

// Challan is the persisted violation record. Amount is fixed at
// creation; PaidAt and PaymentMethod are set iff Status is Paid.
type Challan struct {
	ID            int64            `json:"id"`
	VehicleNumber string           `json:"vehicle_number"`
	VehicleType   VehicleType      `json:"vehicle_type"`
	ViolationType ViolationType    `json:"violation_type"`
	Location      string           `json:"location"`
	Amount        float64          `json:"amount"`
	Status        ChallanStatus    `json:"status"`
	PaymentMethod *PaymentMethod   `json:"payment_method,omitempty"`
	PaidAt        *time.Time       `json:"paid_at,omitempty"`
	UserID        string           `json:"user_id,omitempty"`
	Detection     *DetectionResult `json:"detection,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Statistics is the aggregate derived from the full record set. It is
// recomputed from scratch on every observed store change.
type Statistics struct {
	TotalChallans    int                   `json:"total_challans"`
	PendingChallans  int                   `json:"pending_challans"`
	PaidChallans     int                   `json:"paid_challans"`
	TotalRevenue     float64               `json:"total_revenue"`
	ViolationStats   map[ViolationType]int `json:"violation_stats"`
	VehicleTypeStats map[VehicleType]int   `json:"vehicle_type_stats"`
}
