package datagen

import (
	"math"
	"time"
)

// temperatureSource follows a daily sine curve around a regional mean.
type temperatureSource struct {
	base
	region    string
	mean      float64
	amplitude float64
	variation float64
}

// NewTemperature returns a Temperature source.
func NewTemperature(seed int64) Source {
	return &temperatureSource{
		base:      newBase("Temperature", seed),
		region:    "BerlinDahlem",
		mean:      9.9,
		amplitude: 6,
		variation: 5,
	}
}

func (s *temperatureSource) Next(at time.Time) Value {
	at = at.UTC()
	hour := at.Hour()
	// warmest around 15:00, coldest around 03:00
	daily := s.amplitude * math.Sin(2*math.Pi*float64(hour-9)/24)
	// seasonal swing, coldest mid January
	season := 9 * math.Sin(2*math.Pi*float64(at.YearDay()-105)/365)
	celsius := s.mean + season + daily + s.between(-s.variation/2, s.variation/2)
	return Temperature{
		Point:    newPoint(at, "°C"),
		Region:   s.region,
		Hour:     hour,
		Celsius:  round(celsius, 1),
		Humidity: round(s.between(40, 95), 1),
		Pressure: round(s.between(990, 1030), 1),
	}
}

// powerSource simulates household consumption readings.
type powerSource struct {
	base
}

// NewPower returns a Power source.
func NewPower(seed int64) Source {
	return &powerSource{base: newBase("Power", seed)}
}

func (s *powerSource) Next(at time.Time) Value {
	voltage := s.between(228, 248)
	ampere := s.between(0.2, 32)
	active := voltage * ampere / 1000
	reactive := active * s.between(0.02, 0.2)
	// three sub-meterings summed, in watt-hours per minute
	kwh := s.between(0, 2) + s.between(0, 2) + s.between(0, 20)
	return Power{
		Point:         newPoint(at, "kW"),
		ActivePower:   round(active, 3),
		ReactivePower: round(reactive, 3),
		Voltage:       round(voltage, 2),
		Ampere:        round(ampere, 1),
		Kwh:           round(kwh, 1),
	}
}

var paymentTypes = []string{"CSH", "CRD", "NOC", "DIS", "UNK"}

// taxiFareSource emits one fare per ride with increasing ride ids.
type taxiFareSource struct {
	base
	nextRide int64
}

// NewTaxiFares returns a TaxiFares source.
func NewTaxiFares(seed int64) Source {
	return &taxiFareSource{base: newBase("TaxiFares", seed), nextRide: 1}
}

func (s *taxiFareSource) Next(at time.Time) Value {
	ride := s.nextRide
	s.nextRide++
	fare := s.between(2.5, 60)
	tip := 0.0
	payment := paymentTypes[s.rng.Intn(len(paymentTypes))]
	if payment == "CRD" {
		tip = fare * s.between(0.05, 0.25)
	}
	tolls := 0.0
	if s.rng.Float64() < 0.1 {
		tolls = 5.33
	}
	return TaxiFare{
		Point:       newPoint(at, "$"),
		RideID:      ride,
		TaxiID:      2013000000 + int64(s.intn(0, 10000)),
		DriverID:    2013000000 + int64(s.intn(0, 10000)),
		StartTime:   at.UTC().Format(time.DateTime),
		PaymentType: payment,
		Tip:         round(tip, 2),
		Tolls:       tolls,
		TotalFare:   round(fare+tip+tolls, 2),
	}
}

// taxiRideSource alternates between the start and end event of each ride.
type taxiRideSource struct {
	base
	nextRide int64
	open     *TaxiRide
}

// NewTaxiRides returns a TaxiRides source.
func NewTaxiRides(seed int64) Source {
	return &taxiRideSource{base: newBase("TaxiRides", seed), nextRide: 1}
}

const (
	nycLat = 40.7589
	nycLon = -73.9851
)

func (s *taxiRideSource) Next(at time.Time) Value {
	at = at.UTC()
	if s.open != nil {
		end := *s.open
		s.open = nil
		end.Point = newPoint(at, "")
		end.IsStart = "END"
		end.EndTime = at.Format(time.DateTime)
		return end
	}
	startLat := nycLat + s.between(-0.05, 0.05)
	startLon := nycLon + s.between(-0.05, 0.05)
	endLat, endLon := walk(startLat, startLon, s.between(0, 2*math.Pi), s.between(500, 8000))
	ride := TaxiRide{
		Point:          newPoint(at, ""),
		RideID:         s.nextRide,
		IsStart:        "START",
		StartTime:      at.Format(time.DateTime),
		EndTime:        time.Time{}.Format(time.DateTime),
		StartLongitude: round(startLon, 6),
		StartLatitude:  round(startLat, 6),
		EndLongitude:   round(endLon, 6),
		EndLatitude:    round(endLat, 6),
		PassengerCount: s.intn(1, 5),
		TaxiID:         2013000000 + int64(s.intn(0, 10000)),
		DriverID:       2013000000 + int64(s.intn(0, 10000)),
	}
	s.nextRide++
	s.open = &ride
	return ride
}

// walk moves a lat/lon position distance meters along heading.
func walk(lat, lon, heading, distance float64) (float64, float64) {
	dLat := (distance * math.Cos(heading)) / 111000
	dLon := (distance * math.Sin(heading)) / (111000 * math.Cos(lat*math.Pi/180))
	return lat + dLat, lon + dLon
}

// heartRateSource draws patient records in the ranges of the cardiology set.
type heartRateSource struct {
	base
}

// NewHeartRate returns a HeartRate source.
func NewHeartRate(seed int64) Source {
	return &heartRateSource{base: newBase("HeartRate", seed)}
}

func (s *heartRateSource) Next(at time.Time) Value {
	sex := "Male"
	if s.rng.Intn(2) == 1 {
		sex = "Female"
	}
	return HeartRate{
		Point:                newPoint(at, "bpm"),
		Age:                  float64(s.intn(29, 78)),
		Sex:                  sex,
		ChestPainLevel:       float64(s.intn(1, 5)),
		BloodPressure:        float64(s.intn(94, 201)),
		Cholestoral:          float64(s.intn(126, 565)),
		BloodSugar:           float64(s.intn(0, 2)),
		ElectroCardiographic: float64(s.intn(0, 3)),
		HeartRate:            float64(s.intn(71, 203)),
		Angina:               float64(s.intn(0, 2)),
		OldPeak:              round(s.between(0, 6.2), 1),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
