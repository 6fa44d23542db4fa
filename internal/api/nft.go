package api

import (
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/nft"
	"encoding/json"
	"io"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
)

const maxImageSize = 10 << 20

type mintRequest struct {
	To       models.Address `json:"to"`
	TokenURI string         `json:"tokenURI" binding:"required"`
}

type censusRequest struct {
	From  *uint64    `json:"from" binding:"required"`
	To    *uint64    `json:"to" binding:"required"`
	Teams []nft.Team `json:"teams"`
}

func (s *Server) nftRoutes(r *gin.RouterGroup) {
	r.POST("/mint", s.mint)
	r.POST("/create", s.createToken)
	r.GET("/tokens/:tokenId/owner", s.ownerOf)
	r.GET("/tokens/:tokenId/uri", s.tokenURI)
	r.POST("/census", s.census)
}

func (s *Server) mint(c *gin.Context) {
	var req mintRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	opts, err := callOptions(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.svc.NFT.Mint(c.Request.Context(), req.To, req.TokenURI, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "NFT minted successfully", "hash": result.TxHash.Hex(), "tokenId": result.TokenID})
}

// createToken takes a multipart form: image file, name, description and
// an optional JSON array of attributes
func (s *Server) createToken(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		s.fail(c, badRequest("image file is required"))
		return
	}
	if header.Size > maxImageSize {
		s.fail(c, badRequest("image exceeds %d bytes", maxImageSize))
		return
	}
	file, err := header.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer file.Close()
	image, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		s.fail(c, err)
		return
	}

	req := nft.CreateRequest{
		ImageName:   header.Filename,
		Image:       image,
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
	}
	if raw := c.PostForm("attributes"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Attributes); err != nil {
			s.fail(c, badRequest("attributes: %v", err))
			return
		}
	}

	opts, err := callOptions(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	result, err := s.svc.NFT.Create(c.Request.Context(), req, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "NFT created successfully", "hash": result.TxHash.Hex(), "tokenId": result.TokenID})
}

func (s *Server) ownerOf(c *gin.Context) {
	id, err := pathID(c, "tokenId")
	if err != nil {
		s.fail(c, err)
		return
	}
	owner, err := s.svc.NFT.OwnerOf(c.Request.Context(), new(big.Int).SetUint64(id))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tokenId": id, "owner": owner})
}

func (s *Server) tokenURI(c *gin.Context) {
	id, err := pathID(c, "tokenId")
	if err != nil {
		s.fail(c, err)
		return
	}
	uri, err := s.svc.NFT.TokenURI(c.Request.Context(), new(big.Int).SetUint64(id))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "tokenId": id, "tokenURI": uri})
}

func (s *Server) census(c *gin.Context) {
	var req censusRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	report, err := s.svc.NFT.Census(c.Request.Context(), *req.From, *req.To, req.Teams)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report, "assigned": report.Assigned()})
}
