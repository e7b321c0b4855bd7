package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agora-dev/agora/internal/dataset"
	"github.com/agora-dev/agora/internal/sim"
	"github.com/agora-dev/agora/pkg/session"
)

// TopicRequest sets the deliberation topic.
type TopicRequest struct {
	Topic string `json:"topic" binding:"required,min=1,max=240"`
}

// UserAgentRequest is one participant in an AddAgentsRequest. Energy is a
// pointer so an explicit 0 is distinguishable from an omitted field.
type UserAgentRequest struct {
	Name        string   `json:"name" binding:"required,min=1,max=80"`
	PersonaText string   `json:"persona_text" binding:"required,min=1,max=500"`
	Energy      *float64 `json:"energy"`
	MBTIType    string   `json:"mbti_type"`
}

// AddAgentsRequest registers new participants.
type AddAgentsRequest struct {
	UserAgents []UserAgentRequest `json:"user_agents" binding:"required,min=1,max=25,dive"`
}

// RunRequest triggers one or more deliberation rounds.
type RunRequest struct {
	Rounds int `json:"rounds"`
}

// ResetRequest clears the session, optionally with a new topic.
type ResetRequest struct {
	Topic string `json:"topic"`
}

// InterveneRequest injects a mediator message into the discussion.
type InterveneRequest struct {
	Message string `json:"message" binding:"required,min=1,max=500"`
}

func (s *Server) session(c *gin.Context) *session.Session {
	id := c.Query("session")
	if id == "" {
		id = session.DefaultSessionID
	}
	return s.sessions.GetOrCreate(c.Request.Context(), id, sim.DefaultTopic)
}

func (s *Server) handleSetTopic(c *gin.Context) {
	var req TopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state := s.session(c).SetTopic(c.Request.Context(), req.Topic)
	s.hub.Broadcast(EventState, state)
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleAddAgents(c *gin.Context) {
	var req AddAgentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := s.session(c)
	if sess.UserCount()+len(req.UserAgents) > s.maxUsers {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("a session holds at most %d participants", s.maxUsers),
		})
		return
	}

	inputs := make([]sim.UserAgentInput, 0, len(req.UserAgents))
	for _, ua := range req.UserAgents {
		energy := 0.6
		if ua.Energy != nil {
			energy = *ua.Energy
		}
		inputs = append(inputs, sim.UserAgentInput{
			Name:        ua.Name,
			PersonaText: ua.PersonaText,
			Energy:      energy,
			MBTIType:    ua.MBTIType,
		})
	}

	agents, err := sim.NewUserAgents(sess.Topic(), inputs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state := sess.AddAgents(c.Request.Context(), agents)
	s.hub.Broadcast(EventState, state)
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Rounds == 0 {
		req.Rounds = 1
	}
	if req.Rounds < 1 || req.Rounds > s.maxRounds {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("rounds must be between 1 and %d", s.maxRounds),
		})
		return
	}

	sess := s.session(c)
	results := make([]*sim.RoundResult, 0, req.Rounds)
	for i := 0; i < req.Rounds; i++ {
		result, err := sess.RunRound(c.Request.Context(), s.runner)
		if err != nil {
			var rosterErr *sim.RosterError
			if errors.As(err, &rosterErr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		results = append(results, result)
		s.hub.Broadcast(EventRound, result)
	}

	state := sess.Snapshot()
	s.hub.Broadcast(EventState, state)
	c.JSON(http.StatusOK, gin.H{"results": results, "state": state})
}

func (s *Server) handleReset(c *gin.Context) {
	var req ResetRequest
	// An empty body keeps the current topic.
	_ = c.ShouldBindJSON(&req)
	if req.Topic == "" {
		req.Topic = sim.DefaultTopic
	}

	state := s.session(c).Reset(c.Request.Context(), req.Topic)
	s.hub.Broadcast(EventState, state)
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, s.session(c).Snapshot())
}

func (s *Server) handleDemo(c *gin.Context) {
	sess := s.session(c)
	sess.Reset(c.Request.Context(), sess.Topic())

	agents, err := sim.NewUserAgents(sess.Topic(), DemoRoster())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	state := sess.AddAgents(c.Request.Context(), agents)
	s.hub.Broadcast(EventState, state)
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleIntervene(c *gin.Context) {
	var req InterveneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state := s.session(c).InjectMediatorTurn(c.Request.Context(), req.Message)
	s.hub.Broadcast(EventState, state)
	c.JSON(http.StatusOK, state)
}

func (s *Server) handleDataset(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing dataset file upload"})
		return
	}
	defer file.Close()

	profile, err := dataset.Parse(file, header.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess := s.session(c)
	state := sess.SetDatasetSummary(c.Request.Context(), profile.SummaryText())

	var chart *dataset.ChartSuggestion
	for _, agent := range state.Agents {
		if agent.Role == sim.RoleMediator {
			chart = dataset.SuggestChart(profile, agent.ID, state.RoundNumber)
			break
		}
	}

	s.hub.Broadcast(EventState, state)
	c.JSON(http.StatusOK, gin.H{"profile": profile, "chart": chart, "state": state})
}
