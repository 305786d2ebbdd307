package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config agrupa toda la configuración del proceso.
// Reemplaza a las SharedPreferences mutables del cliente: contacto, nombre
// del paciente y tokens viven en un struct explícito que se inyecta en los
// adapters al construirlos.
type Config struct {
	HTTPAddr string
	DBDSN    string

	PatientName string

	// Contacto de emergencia (consumido read-only por el motor).
	ContactName  string
	ContactPhone string

	// Canal de mensajes (Telegram) y gateway de llamadas.
	TelegramBotToken string
	TelegramChatID   int64
	CallGatewayURL   string

	Engine Engine
}

// Engine contiene los tiempos del motor de recordatorios/escalamiento.
type Engine struct {
	AutoPostponeAfter time.Duration // sin respuesta del usuario => auto-postergar
	PostponeDelay     time.Duration // cuánto se corre el recordatorio postergado
	EscalationStart   time.Duration // desde la hora original hasta nivel 1
	LevelStep         time.Duration // entre niveles 1→2→3→4
	ForceCallElapsed  time.Duration // junto con >=4 postergaciones fuerza llamada
	SweepEvery        time.Duration // período del barrido de reconciliación
	SweepAfter        time.Duration // atraso mínimo para que el barrido actúe
	Window            time.Duration // ventana de generación de recordatorios
}

// DefaultEngine replica los tiempos del sistema original:
// 30s auto-postergar, 5min de postergación, escalera de 15min y
// monitor cada 2min sobre recordatorios con 20+ min de atraso.
func DefaultEngine() Engine {
	return Engine{
		AutoPostponeAfter: 30 * time.Second,
		PostponeDelay:     5 * time.Minute,
		EscalationStart:   15 * time.Minute,
		LevelStep:         15 * time.Minute,
		ForceCallElapsed:  60 * time.Minute,
		SweepEvery:        2 * time.Minute,
		SweepAfter:        20 * time.Minute,
		Window:            30 * 24 * time.Hour,
	}
}

// FromEnv arma la Config desde variables de entorno, con defaults de dev.
func FromEnv() Config {
	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	eng := DefaultEngine()
	eng.AutoPostponeAfter = envDuration("AUTO_POSTPONE_AFTER", eng.AutoPostponeAfter)
	eng.PostponeDelay = envDuration("POSTPONE_DELAY", eng.PostponeDelay)
	eng.EscalationStart = envDuration("ESCALATION_START", eng.EscalationStart)
	eng.LevelStep = envDuration("ESCALATION_LEVEL_STEP", eng.LevelStep)
	eng.ForceCallElapsed = envDuration("FORCE_CALL_ELAPSED", eng.ForceCallElapsed)
	eng.SweepEvery = envDuration("SWEEP_EVERY", eng.SweepEvery)
	eng.SweepAfter = envDuration("SWEEP_AFTER", eng.SweepAfter)
	eng.Window = envDuration("SCHEDULE_WINDOW", eng.Window)

	return Config{
		HTTPAddr:         addr,
		DBDSN:            os.Getenv("DB_DSN"),
		PatientName:      envDefault("PATIENT_NAME", "El paciente"),
		ContactName:      os.Getenv("EMERGENCY_CONTACT_NAME"),
		ContactPhone:     os.Getenv("EMERGENCY_CONTACT_PHONE"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   envInt64("TELEGRAM_CHAT_ID", 0),
		CallGatewayURL:   os.Getenv("CALL_GATEWAY_URL"),
		Engine:           eng,
	}
}

func envDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
