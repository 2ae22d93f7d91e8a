// Datapoint structs with their JSON tags and field accessors
package datagen

// Temperature is one weather station reading.
type Temperature struct {
	Point
	Region   string  `json:"region"`
	Hour     int     `json:"hour"`
	Celsius  float64 `json:"celsius"`
	Humidity float64 `json:"humidity"`
	Pressure float64 `json:"pressure"`
}

func (t Temperature) Field(name string) (string, bool) {
	switch name {
	case "region":
		return t.Region, true
	case "hour":
		return formatInt(int64(t.Hour)), true
	case "celsius", "value":
		return formatFloat(t.Celsius), true
	case "humidity":
		return formatFloat(t.Humidity), true
	case "pressure":
		return formatFloat(t.Pressure), true
	}
	return t.field(name)
}

// Power is one household power consumption sample.
type Power struct {
	Point
	ActivePower   float64 `json:"activePower"`
	ReactivePower float64 `json:"reActivePower"`
	Voltage       float64 `json:"voltage"`
	Ampere        float64 `json:"ampere"`
	Kwh           float64 `json:"Kwh"`
}

func (p Power) Field(name string) (string, bool) {
	switch name {
	case "activePower":
		return formatFloat(p.ActivePower), true
	case "reActivePower":
		return formatFloat(p.ReactivePower), true
	case "voltage":
		return formatFloat(p.Voltage), true
	case "ampere":
		return formatFloat(p.Ampere), true
	case "Kwh", "value":
		return formatFloat(p.Kwh), true
	}
	return p.field(name)
}

// TaxiFare is the payment record of one taxi ride.
type TaxiFare struct {
	Point
	RideID      int64   `json:"rideId"`
	TaxiID      int64   `json:"taxiId"`
	DriverID    int64   `json:"driverId"`
	StartTime   string  `json:"startTime"`
	PaymentType string  `json:"paymentType"`
	Tip         float64 `json:"tip"`
	Tolls       float64 `json:"tolls"`
	TotalFare   float64 `json:"totalFare"`
}

func (f TaxiFare) Field(name string) (string, bool) {
	switch name {
	case "rideId":
		return formatInt(f.RideID), true
	case "taxiId":
		return formatInt(f.TaxiID), true
	case "driverId":
		return formatInt(f.DriverID), true
	case "startTime":
		return f.StartTime, true
	case "paymentType":
		return f.PaymentType, true
	case "tip":
		return formatFloat(f.Tip), true
	case "tolls":
		return formatFloat(f.Tolls), true
	case "totalFare", "value":
		return formatFloat(f.TotalFare), true
	}
	return f.field(name)
}

// TaxiRide is the start or end event of one taxi ride.
type TaxiRide struct {
	Point
	RideID         int64   `json:"rideId"`
	IsStart        string  `json:"isStart"`
	StartTime      string  `json:"startTime"`
	EndTime        string  `json:"endTime"`
	StartLongitude float64 `json:"startLongitude"`
	StartLatitude  float64 `json:"startLatitude"`
	EndLongitude   float64 `json:"endLongitude"`
	EndLatitude    float64 `json:"endLatitude"`
	PassengerCount int     `json:"passengerCount"`
	TaxiID         int64   `json:"taxiId"`
	DriverID       int64   `json:"driverId"`
}

func (r TaxiRide) Field(name string) (string, bool) {
	switch name {
	case "rideId":
		return formatInt(r.RideID), true
	case "isStart":
		return r.IsStart, true
	case "startTime":
		return r.StartTime, true
	case "endTime":
		return r.EndTime, true
	case "startLongitude":
		return formatFloat(r.StartLongitude), true
	case "startLatitude":
		return formatFloat(r.StartLatitude), true
	case "endLongitude":
		return formatFloat(r.EndLongitude), true
	case "endLatitude":
		return formatFloat(r.EndLatitude), true
	case "passengerCount", "value":
		return formatInt(int64(r.PassengerCount)), true
	case "taxiId":
		return formatInt(r.TaxiID), true
	case "driverId":
		return formatInt(r.DriverID), true
	}
	return r.field(name)
}

// HeartRate is one patient record of the cardiology data set.
type HeartRate struct {
	Point
	Age                  float64 `json:"age"`
	Sex                  string  `json:"sex"`
	ChestPainLevel       float64 `json:"chestPainLevel"`
	BloodPressure        float64 `json:"bloodPressure"`
	Cholestoral          float64 `json:"cholestoral"`
	BloodSugar           float64 `json:"bloodSugar"`
	ElectroCardiographic float64 `json:"electroCardiographic"`
	HeartRate            float64 `json:"heartRate"`
	Angina               float64 `json:"angina"`
	OldPeak              float64 `json:"oldPeak"`
}

func (h HeartRate) Field(name string) (string, bool) {
	switch name {
	case "age":
		return formatFloat(h.Age), true
	case "sex":
		return h.Sex, true
	case "chestPainLevel":
		return formatFloat(h.ChestPainLevel), true
	case "bloodPressure":
		return formatFloat(h.BloodPressure), true
	case "cholestoral":
		return formatFloat(h.Cholestoral), true
	case "bloodSugar":
		return formatFloat(h.BloodSugar), true
	case "electroCardiographic":
		return formatFloat(h.ElectroCardiographic), true
	case "heartRate", "value":
		return formatFloat(h.HeartRate), true
	case "angina":
		return formatFloat(h.Angina), true
	case "oldPeak":
		return formatFloat(h.OldPeak), true
	}
	return h.field(name)
}
