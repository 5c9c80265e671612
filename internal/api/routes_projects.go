package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/campusconnect/internal/handlers"
)

func registerProjectRoutes(api *gin.RouterGroup, handler *handlers.ProjectHandler) {
	group := api.Group("/projects")
	{
		group.POST("", handler.Create)
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)

		group.POST("/:id/join-requests", handler.RequestToJoin)
		group.GET("/:id/join-requests", handler.ListJoinRequests)
		group.PATCH("/:id/join-requests", handler.ManageJoinRequest)
		group.PATCH("/:id/members/remove", handler.RemoveMember)

		group.POST("/:id/tasks", handler.AddTask)
		group.GET("/:id/tasks", handler.ListTasks)
		group.PATCH("/:id/tasks/:taskID", handler.UpdateTask)

		group.POST("/:id/messages", handler.PostMessage)
		group.GET("/:id/messages", handler.ListMessages)
	}
}
