package service

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"time"

	"cartbooking/internal/db"
	"cartbooking/internal/entities"
)

const emailTemplate = `<html>
<body style="font-family: sans-serif;">
  <h2>Cart reservation {{.Status}}</h2>
  <p>Hello {{.UserName}},</p>
  <p>Your reservation for <strong>{{.CartName}}</strong> is {{.Status}}.</p>
  <ul>
    <li>Code: {{.ReservationCode}}</li>
    <li>Devices: {{.Quantity}}</li>
    <li>Room: {{.Room}}</li>
    <li>Pickup: {{.StartTimeFormatted}}</li>
    <li>Return: {{.EndTimeFormatted}}</li>
  </ul>
  <p>Device Cart Reservations, {{.CurrentYear}}.</p>
</body>
</html>`

type SenderService struct {
	tmpl *template.Template
}

func NewSenderService() *SenderService {
	return &SenderService{tmpl: template.Must(template.New("reservation_email").Parse(emailTemplate))}
}

func (s *SenderService) SendReservationEmail(user *db.User, reservation *db.Reservation, cartName, status string) {
	emailData := entities.ReservationEmailData{
		UserName:           user.Name,
		ReservationCode:    reservation.Code,
		CartName:           cartName,
		Quantity:           reservation.Quantity,
		Room:               reservation.Room,
		StartTimeFormatted: reservation.StartTime.Format("02 Jan 2006 15:04 MST"),
		EndTimeFormatted:   reservation.EndTime.Format("02 Jan 2006 15:04 MST"),
		CurrentYear:        time.Now().Year(),
		Status:             status,
	}

	emailSubject := fmt.Sprintf("Your cart reservation is %s - Code: %s", status, emailData.ReservationCode)
	plainTextBody := fmt.Sprintf(
		"Hello %s,\n\nYour reservation for %s is %s.\n\n"+
			"Reservation details:\n"+
			"Code: %s\n"+
			"Devices: %d\n"+
			"Room: %s\n"+
			"Pickup: %s\n"+
			"Return: %s\n\n"+
			"Device Cart Reservations.",
		emailData.UserName, emailData.CartName, status,
		emailData.ReservationCode, emailData.Quantity, emailData.Room,
		emailData.StartTimeFormatted, emailData.EndTimeFormatted,
	)

	var htmlBodyBuffer bytes.Buffer
	if err := s.tmpl.Execute(&htmlBodyBuffer, emailData); err != nil {
		log.Printf("Error executing email template for reservation %s: %v", emailData.ReservationCode, err)
	}
	htmlBody := htmlBodyBuffer.String()

	go func(toEmail, toName, subject, plainBody, htmlBodyContent string) {
		if err := SendEmailWithSendGrid(toEmail, toName, subject, plainBody, htmlBodyContent); err != nil {
			log.Printf("Email for reservation %s failed: %v", emailData.ReservationCode, err)
		}
	}(user.Email, emailData.UserName, emailSubject, plainTextBody, htmlBody)
}

func (s *SenderService) SendReservationSMS(user *db.User, reservation *db.Reservation, status string) {
	message := fmt.Sprintf("Cart reservation %s is %s. Pickup: %s. Details in your email.",
		reservation.Code, status,
		reservation.StartTime.Format("02/01 15:04"),
	)
	go func(phone, body, code string) {
		if err := SendSMS(phone, body); err != nil {
			log.Printf("SMS for reservation %s failed: %v", code, err)
		}
	}(user.Phone, message, reservation.Code)
}
