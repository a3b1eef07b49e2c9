// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors turns gateway and transport failures into messages a
// console user can act on.
package httperrors

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	apperrors "loxtr/console/internal/errors"
	"loxtr/console/internal/logging"
)

// Message is a rendered failure.
type Message struct {
	Icon    string
	Title   string
	Lead    string
	Hints   []string
	Details string
}

// Describe classifies err. context completes "... while <context>".
func Describe(err error, context string) Message {
	details := shorten(logging.Mask(err.Error()))
	switch apperrors.KindOf(err) {
	case apperrors.Timeout:
		return Message{
			Icon:  "⏱️ ",
			Title: "Connection timeout while " + context,
			Lead:  "The server took too long to respond. This could mean:",
			Hints: []string{"Slow internet connection", "Server is under heavy load", "Network firewall is blocking the connection"},
		}
	case apperrors.AuthExpired, apperrors.SessionEnded:
		return Message{
			Icon:  "🔑",
			Title: "Session ended while " + context,
			Lead:  "Your sign-in is no longer valid.",
			Hints: []string{"Run 'loxtr login' and try again"},
		}
	case apperrors.InsufficientBalance:
		return Message{
			Icon:  "💳",
			Title: "Not enough credits while " + context,
			Lead:  "This action costs more credits than your balance holds.",
			Hints: []string{"Check 'loxtr credits balance'", "Upgrade your plan to continue"},
		}
	case apperrors.ValidationFailed:
		return Message{Icon: "✏️ ", Title: "Cannot continue while " + context, Lead: details}
	case apperrors.RemoteError:
		if status := apperrors.StatusOf(err); status >= 500 {
			return Message{
				Icon:    "⚠️ ",
				Title:   "Server error while " + context,
				Lead:    "The LOXTR server encountered an internal error.",
				Hints:   []string{"This is not a problem with your setup", "Please try again in a few minutes"},
				Details: details,
			}
		}
		return Message{Icon: "❌", Title: "Request rejected while " + context, Lead: details}
	}

	switch {
	case isDNSError(err):
		return Message{
			Icon:  "🌐",
			Title: "Cannot resolve server address while " + context,
			Lead:  "Unable to look up the API host. Please check:",
			Hints: []string{"Your internet connection is working", "DNS settings are correct", "LOXTR_API_URL points to the right host"},
		}
	case isConnectionRefusedError(err):
		return Message{
			Icon:  "🚫",
			Title: "Connection refused while " + context,
			Lead:  "The server is not accepting connections. This could mean:",
			Hints: []string{"The service is temporarily down", "Firewall is blocking the connection", "Wrong server address or port"},
		}
	case isSSLError(err):
		return Message{
			Icon:  "🔒",
			Title: "Secure connection failed while " + context,
			Lead:  "Cannot establish a secure HTTPS connection. Try:",
			Hints: []string{"Check your system date and time", "Verify network proxy settings"},
		}
	}
	return Message{
		Icon:    "❌",
		Title:   "Cannot reach the LOXTR service while " + context,
		Lead:    "Please check:",
		Hints:   []string{"Your internet connection", "Firewall settings that might block HTTPS requests"},
		Details: details,
	}
}

// FormatNetworkError prints a friendly description of err and returns it wrapped.
func FormatNetworkError(err error, context string) error {
	if err == nil {
		return nil
	}
	Present(Describe(err, context))
	return fmt.Errorf("%s: %w", context, err)
}

// Present renders m with pterm.
func Present(m Message) {
	pterm.Printf("%s %s\n", m.Icon, m.Title)
	pterm.Println()
	if m.Lead != "" {
		pterm.Println(m.Lead)
	}
	for _, h := range m.Hints {
		pterm.Println("  • " + h)
	}
	pterm.Println()
	if m.Details != "" {
		pterm.Debug.Printf("Technical details: %s\n", m.Details)
	}
}

func shorten(s string) string {
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefusedError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "connection refused")
}

func isSSLError(err error) bool {
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "tls") ||
		strings.Contains(s, "x509") ||
		strings.Contains(s, "certificate") ||
		strings.Contains(s, "handshake")
}

// ExtractHostFromURL extracts the hostname from a URL for error messages.
func ExtractHostFromURL(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "server"
	}
	return u.Host
}
