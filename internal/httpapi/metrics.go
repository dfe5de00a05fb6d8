package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"})

	marksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_attendance_marks_total",
		Help: "Attendance mark attempts by outcome.",
	}, []string{"outcome"})
)
