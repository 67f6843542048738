package entities

type ReservationEmailData struct {
	UserName           string
	ReservationCode    string
	CartName           string
	Quantity           int
	Room               string
	StartTimeFormatted string
	EndTimeFormatted   string
	CurrentYear        int
	Status             string
}
