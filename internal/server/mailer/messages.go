package mailer

import "fmt"

func RegistrationCode(email string, code string) Message {
	return Message{
		Subject: "Mini Mart Registration Code",
		To:      []string{email},
		Body:    fmt.Sprintf("Your registration code is: %s\nIt expires in 10 minutes.", code),
	}
}

func LoginCode(username string, email string, code string) Message {
	return Message{
		Subject: "Your Mini Mart Login Code",
		To:      []string{email},
		Body:    fmt.Sprintf("Hello %s, your login code is: %s\nExpires in 10 minutes.", username, code),
	}
}

func ResetCode(username string, email string, code string) Message {
	return Message{
		Subject: "Mini Mart Password Reset",
		To:      []string{email},
		Body:    fmt.Sprintf("Hello %s, your reset code is: %s\nExpires in 15 minutes.", username, code),
	}
}
