package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/coniferlabs/appintake"
	"github.com/coniferlabs/appintake/formdef"
	"github.com/coniferlabs/appintake/prefill"
	"github.com/coniferlabs/appintake/session"
)

func main() {
	conf := flag.String("config", "config.json", "path to config file")
	flag.Parse()
	config, err := loadConfig(*conf)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := startServer(context.Background(), config); err != nil {
		log.Fatalf("start server: %v", err)
	}
}

func startServer(ctx context.Context, config *Config) error {
	slog.SetLogLoggerLevel(slog.LevelInfo)

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  config.APIKey,
		Model:   config.Model,
		BaseURL: config.BaseURL,
	})
	if err != nil {
		return err
	}

	var store session.Store
	if config.RedisAddr != "" {
		store = session.NewRedisStore(redis.NewClient(&redis.Options{Addr: config.RedisAddr}), 0)
	} else {
		store = session.NewMemoryStore()
	}
	defer store.Close()

	steps, err := formdef.ParseSteps([]byte(annuitySchema))
	if err != nil {
		return err
	}

	srv := &server{
		engine:      appintake.New(cm, store, appintake.WithSubmitter(appintake.NewHTTPSubmitter(0))),
		agent:       prefill.NewAgent(cm, demoSources()),
		steps:       steps,
		callbackURL: config.CallbackURL,
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Post("/api/sessions", srv.createSession)
	r.Get("/api/sessions/{sessionID}", srv.getSession)
	r.Post("/api/sessions/{sessionID}/messages", srv.handleMessage)
	r.Post("/api/sessions/{sessionID}/submit", srv.submit)

	slog.Info("listening", "addr", config.Listen)
	return http.ListenAndServe(config.Listen, r)
}

type server struct {
	engine      *appintake.Engine
	agent       *prefill.Agent
	steps       []formdef.StepDef
	callbackURL string
}

func (s *server) createSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClientID  string         `json:"client_id"`
		AdvisorID string         `json:"advisor_id"`
		KnownData map[string]any `json:"known_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	known := body.KnownData
	if body.ClientID != "" {
		res, err := s.agent.Run(r.Context(), prefill.Request{
			ClientID:  body.ClientID,
			AdvisorID: body.AdvisorID,
		})
		if err != nil {
			slog.Warn("prefill failed, starting empty", "client_id", body.ClientID, "error", err)
		} else {
			merged, merr := prefill.MergeKnownData(res.KnownData, known)
			if merr == nil {
				known = merged
			}
		}
	}

	st, greeting, err := s.engine.CreateSession(r.Context(), appintake.CreateSessionRequest{
		Steps:       s.steps,
		KnownData:   known,
		CallbackURL: s.callbackURL,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": st.ID,
		"phase":      st.Phase,
		"greeting":   greeting,
	})
}

func (s *server) getSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": st.ID,
		"phase":      st.Phase,
		"fields":     st.FieldSummary(),
	})
}

func (s *server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	reply, updates, err := s.engine.HandleTurn(r.Context(), sessionID, body.Message)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	st, err := s.engine.Session(r.Context(), sessionID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reply":   reply,
		"updates": updates,
		"phase":   st.Phase,
	})
}

func (s *server) submit(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Submit(r.Context(), chi.URLParam(r, "sessionID"))
	switch {
	case errors.Is(err, appintake.ErrSubmissionFailed):
		writeJSON(w, http.StatusBadGateway, result)
	case err != nil:
		writeEngineError(w, err)
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, appintake.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
