package services

import (
	"math"
	"strconv"
	"strings"

	"github.com/AnshRaj112/robolab-backend/internal/models"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// ExportSessionsCSV renders the login-session audit report: a fixed header,
// one quoted row per session, newline-joined. Active sessions show "Active"
// in the logout and duration columns; closed ones show the duration rounded
// to minutes.
func ExportSessionsCSV(sessions []models.LoginSession) string {
	lines := make([]string, 0, len(sessions)+1)
	lines = append(lines, csvRow(
		"Login Time", "Logout Time", "User Name", "User Email",
		"Role", "Device Info", "Session Duration (minutes)", "Status",
	))

	for _, sess := range sessions {
		logout := "Active"
		duration := "Active"
		status := "Active"
		if !sess.IsActive {
			status = "Completed"
			duration = strconv.Itoa(int(math.Round(float64(sess.SessionDuration) / 60000)))
			if sess.LogoutTime != nil {
				logout = sess.LogoutTime.Format(exportTimeLayout)
			} else {
				logout = "-"
			}
		}
		lines = append(lines, csvRow(
			sess.LoginTime.Format(exportTimeLayout),
			logout,
			sess.UserName,
			sess.UserEmail,
			sess.UserRole,
			sess.DeviceInfo,
			duration,
			status,
		))
	}

	return strings.Join(lines, "\n")
}

func csvRow(fields ...string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}
