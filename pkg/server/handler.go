package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/m-mizutani/aistaff/pkg/model"
	"github.com/m-mizutani/aistaff/pkg/usecase/business"
	"github.com/m-mizutani/goerr/v2"
)

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return goerr.Wrap(model.ErrInvalidInput, "invalid request body", goerr.V("reason", err.Error()))
	}
	return nil
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := s.uc.Auth.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, session)
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	session, err := s.uc.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session)
}

func (s *Server) me(c echo.Context) error {
	user, err := s.uc.Auth.Me(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"user": user})
}

func (s *Server) createBusiness(c echo.Context) error {
	var input business.CreateInput
	if err := bind(c, &input); err != nil {
		return err
	}

	b, err := s.uc.Business.Create(c.Request().Context(), userID(c), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, b)
}

func (s *Server) listBusinesses(c echo.Context) error {
	businesses, err := s.uc.Business.List(c.Request().Context(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, businesses)
}

func (s *Server) getBusiness(c echo.Context) error {
	b, err := s.uc.Business.Get(c.Request().Context(), userID(c), model.BusinessID(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) updateBusiness(c echo.Context) error {
	var input business.UpdateInput
	if err := bind(c, &input); err != nil {
		return err
	}

	b, err := s.uc.Business.Update(c.Request().Context(), userID(c), model.BusinessID(c.Param("id")), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) deleteBusiness(c echo.Context) error {
	if err := s.uc.Business.Delete(c.Request().Context(), userID(c), model.BusinessID(c.Param("id"))); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Business deleted successfully"})
}

type createAgentRequest struct {
	BusinessID model.BusinessID `json:"businessId"`
	AgentName  string           `json:"agentName"`
}

func (s *Server) createAgent(c echo.Context) error {
	var req createAgentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.BusinessID == "" {
		return goerr.Wrap(model.ErrInvalidInput, "business ID is required")
	}

	a, err := s.uc.Agent.Create(c.Request().Context(), userID(c), req.BusinessID, req.AgentName)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (s *Server) getAgent(c echo.Context) error {
	a, err := s.uc.Agent.Get(c.Request().Context(), userID(c), model.AgentID(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (s *Server) listAgents(c echo.Context) error {
	agents, err := s.uc.Agent.ListByBusiness(c.Request().Context(), userID(c), model.BusinessID(c.Param("businessId")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, agents)
}

func (s *Server) deleteAgent(c echo.Context) error {
	if err := s.uc.Agent.Delete(c.Request().Context(), userID(c), model.AgentID(c.Param("id"))); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Agent deleted successfully"})
}

func (s *Server) refreshAgentMemory(c echo.Context) error {
	a, err := s.uc.Agent.RefreshMemory(c.Request().Context(), userID(c), model.AgentID(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Message *model.Message `json:"message"`
	Usage   *model.Usage   `json:"usage"`
	Note    string         `json:"note,omitempty"`
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	reply, err := s.uc.Chat.Chat(c.Request().Context(), userID(c), model.AgentID(c.Param("id")), req.Message)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, chatResponse{
		Message: reply.Message,
		Usage:   reply.Usage,
		Note:    reply.Note,
	})
}

func (s *Server) listMessages(c echo.Context) error {
	messages, err := s.uc.Chat.ListMessages(c.Request().Context(), userID(c), model.AgentID(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messages)
}

type contentRequest struct {
	Type   model.ContentType `json:"type"`
	Prompt string            `json:"prompt"`
}

type contentResponse struct {
	Content *model.GeneratedContent `json:"content"`
	Usage   *model.Usage            `json:"usage"`
	Note    string                  `json:"note,omitempty"`
}

func (s *Server) generateContent(c echo.Context) error {
	var req contentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	// the raw prompt fallback for unknown types is only reachable from the CLI
	if err := req.Type.Validate(); err != nil {
		return goerr.Wrap(model.ErrInvalidInput, "invalid content type", goerr.V("type", req.Type))
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return goerr.Wrap(model.ErrInvalidInput, "prompt is required")
	}

	result, err := s.uc.Content.Generate(c.Request().Context(), userID(c), model.AgentID(c.Param("id")), req.Type, req.Prompt)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, contentResponse{
		Content: result.Content,
		Usage:   result.Usage,
		Note:    result.Note,
	})
}

func (s *Server) listContents(c echo.Context) error {
	contents, err := s.uc.Content.ListContent(c.Request().Context(), userID(c), model.AgentID(c.Param("id")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contents)
}
