package public

import (
	handlershared "github.com/investorsdeaal/referral-engine/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

func getAssociateID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "associate_id", "error.associate_id_invalid", "error.associate_id_type_invalid")
}
