package api

import (
	"contract-orchestrator/internal/marketplace"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type productRequest struct {
	Name  string      `json:"name" binding:"required"`
	Price json.Number `json:"price" binding:"required"`
}

type editProductRequest struct {
	Name   string      `json:"name" binding:"required"`
	Price  json.Number `json:"price" binding:"required"`
	Active *bool       `json:"active" binding:"required"`
}

type buyRequest struct {
	Price json.Number `json:"price" binding:"required"`
}

func (s *Server) productRoutes(r *gin.RouterGroup) {
	r.POST("/products", s.addProduct)
	r.POST("/products/:productId/buy", s.buyProduct)
	r.PATCH("/products/:productId", s.editProduct)
	r.DELETE("/products/:productId", s.disableProduct)
	r.GET("/products", s.listProducts)
	r.GET("/purchases/:userAddress", s.userPurchases)
	r.GET("/balance", s.productBalance)
	r.POST("/release", s.productRelease)
}

func (s *Server) addProduct(c *gin.Context) {
	var req productRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	price, err := parseEther("price", req.Price)
	if err != nil {
		s.fail(c, err)
		return
	}
	opts, err := callOptions(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	receipt, err := s.svc.Products.AddProduct(c.Request.Context(), req.Name, price, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	extra := gin.H{}
	if id, ok := marketplace.AddedProductID(receipt); ok {
		extra["productId"] = id
	}
	s.confirmed(c, "Product added successfully", receipt, extra)
}

func (s *Server) buyProduct(c *gin.Context) {
	id, err := pathID(c, "productId")
	if err != nil {
		s.fail(c, err)
		return
	}
	var req buyRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	price, err := parseEther("price", req.Price)
	if err != nil {
		s.fail(c, err)
		return
	}
	opts, err := callOptions(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	receipt, err := s.svc.Products.BuyProduct(c.Request.Context(), id, price, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.confirmed(c, "Product purchased successfully", receipt, nil)
}

func (s *Server) editProduct(c *gin.Context) {
	id, err := pathID(c, "productId")
	if err != nil {
		s.fail(c, err)
		return
	}
	var req editProductRequest
	if err := bind(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	price, err := parseEther("price", req.Price)
	if err != nil {
		s.fail(c, err)
		return
	}
	opts, err := callOptions(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	receipt, err := s.svc.Products.EditProduct(c.Request.Context(), id, req.Name, price, *req.Active, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.confirmed(c, "Product updated successfully", receipt, nil)
}

func (s *Server) disableProduct(c *gin.Context) {
	id, err := pathID(c, "productId")
	if err != nil {
		s.fail(c, err)
		return
	}
	opts, err := callOptions(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	receipt, err := s.svc.Products.DisableProduct(c.Request.Context(), id, opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.confirmed(c, "Product disabled", receipt, nil)
}

func (s *Server) listProducts(c *gin.Context) {
	products, err := s.svc.Products.Products(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
}

func (s *Server) userPurchases(c *gin.Context) {
	user, err := pathAddress(c, "userAddress")
	if err != nil {
		s.fail(c, err)
		return
	}
	purchases, err := s.svc.Products.UserPurchases(c.Request.Context(), user)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "purchases": purchases})
}

func (s *Server) productBalance(c *gin.Context) {
	balance, err := s.svc.Products.Balance(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, balanceBody(balance))
}

func (s *Server) productRelease(c *gin.Context) {
	opts, err := callOptions(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	receipt, err := s.svc.Products.ReleasePayments(c.Request.Context(), opts)
	if err != nil {
		s.fail(c, err)
		return
	}
	message := "Payments released to all payees"
	if shares := s.svc.Products.Shares(); len(shares) > 0 {
		parts := make([]string, len(shares))
		for i, p := range shares {
			parts[i] = fmt.Sprintf("%d%%", p)
		}
		message = "Payments released with split: " + strings.Join(parts, ", ")
	}
	s.confirmed(c, message, receipt, nil)
}
