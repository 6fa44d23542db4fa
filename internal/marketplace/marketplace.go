// Package marketplace lists, sells and pays out products through the
// product contract.
package marketplace

import (
	"context"
	"contract-orchestrator/internal/chainerrors"
	"contract-orchestrator/internal/events"
	"contract-orchestrator/internal/interfaces"
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/split"
	"contract-orchestrator/internal/validation"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
)

// ProductAdded(uint256 indexed id, string name, uint256 price, address indexed seller)
var productAddedSignature = crypto.Keccak256Hash([]byte("ProductAdded(uint256,string,uint256,address)"))

var ErrEmptyName = fmt.Errorf("%w: product name cannot be empty", validation.ErrInvalid)

// onchainProduct matches the tuple returned by getAllProducts
type onchainProduct struct {
	Id     *big.Int
	Name   string
	Price  *big.Int
	Seller common.Address
	Active bool
}

type Service struct {
	gateway interfaces.ContractGateway
	logger  *zerolog.Logger
	shares  []uint8
}

type Option func(*Service)

// WithShares records the payee percentages the contract was deployed with.
// They are checked before every release.
func WithShares(shares []uint8) Option {
	return func(s *Service) { s.shares = append([]uint8(nil), shares...) }
}

func NewService(gateway interfaces.ContractGateway, logger *zerolog.Logger, opts ...Option) *Service {
	s := &Service{gateway: gateway, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shares returns the configured deployment percentages, if any
func (s *Service) Shares() []uint8 {
	return append([]uint8(nil), s.shares...)
}

func validateListing(name string, price *big.Int) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if err := validation.ValidateAmount(price); err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	return nil
}

// AddProduct lists a product priced in wei
func (s *Service) AddProduct(ctx context.Context, name string, price *big.Int, opts models.CallOptions) (*models.Receipt, error) {
	const op = "product.add"
	if err := validateListing(name, price); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	receipt, err := s.gateway.Submit(ctx, opts.Apply(models.NewRequest(models.Product, "addProduct", name, new(big.Int).Set(price))))
	if err != nil {
		return nil, chainerrors.WithOp(op, err)
	}
	event := s.logger.Info().Str("name", name).Str("txHash", receipt.TxHash.Hex())
	if id, ok := AddedProductID(receipt); ok {
		event = event.Uint64("productId", id)
	}
	event.Msg("Product added")
	return receipt, nil
}

// AddedProductID reads the id from the receipt's ProductAdded log
func AddedProductID(receipt *models.Receipt) (uint64, bool) {
	id, ok := events.DecodeTopic(receipt, productAddedSignature, 1)
	if !ok || !id.IsUint64() {
		return 0, false
	}
	return id.Uint64(), true
}

func (s *Service) EditProduct(ctx context.Context, id uint64, name string, price *big.Int, active bool, opts models.CallOptions) (*models.Receipt, error) {
	const op = "product.edit"
	if err := validateListing(name, price); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req := models.NewRequest(models.Product, "editProduct", new(big.Int).SetUint64(id), name, new(big.Int).Set(price), active)
	receipt, err := s.gateway.Submit(ctx, opts.Apply(req))
	if err != nil {
		return nil, chainerrors.WithOp(op, err)
	}
	return receipt, nil
}

// BuyProduct pays price wei for product id. The contract checks the price.
func (s *Service) BuyProduct(ctx context.Context, id uint64, price *big.Int, opts models.CallOptions) (*models.Receipt, error) {
	const op = "product.buy"
	if err := validation.ValidateAmount(price); err != nil {
		return nil, fmt.Errorf("%s: invalid price: %w", op, err)
	}
	req := models.NewRequest(models.Product, "buyProduct", new(big.Int).SetUint64(id)).WithValue(price)
	receipt, err := s.gateway.Submit(ctx, opts.Apply(req))
	if err != nil {
		return nil, chainerrors.WithOp(op, err)
	}
	s.logger.Info().Uint64("productId", id).Str("txHash", receipt.TxHash.Hex()).Msg("Product purchased")
	return receipt, nil
}

func (s *Service) DisableProduct(ctx context.Context, id uint64, opts models.CallOptions) (*models.Receipt, error) {
	receipt, err := s.gateway.Submit(ctx, opts.Apply(models.NewRequest(models.Product, "disableProduct", new(big.Int).SetUint64(id))))
	if err != nil {
		return nil, chainerrors.WithOp("product.disable", err)
	}
	return receipt, nil
}

func (s *Service) Products(ctx context.Context) ([]models.Listing, error) {
	var raw []onchainProduct
	if err := s.gateway.Read(ctx, models.NewRequest(models.Product, "getAllProducts"), &raw); err != nil {
		return nil, chainerrors.WithOp("product.list", err)
	}
	products := make([]models.Listing, 0, len(raw))
	for _, p := range raw {
		product := models.Listing{
			Name:   p.Name,
			Price:  new(big.Int),
			Seller: models.AddressFromCommon(p.Seller),
			Active: p.Active,
		}
		if p.Id != nil {
			product.ID = p.Id.Uint64()
		}
		if p.Price != nil {
			product.Price.Set(p.Price)
		}
		products = append(products, product)
	}
	return products, nil
}

// UserPurchases returns the ids of products bought by user
func (s *Service) UserPurchases(ctx context.Context, user models.Address) ([]uint64, error) {
	var raw []*big.Int
	if err := s.gateway.Read(ctx, models.NewRequest(models.Product, "getUserPurchases", user.Common()), &raw); err != nil {
		return nil, chainerrors.WithOp("product.purchases", err)
	}
	ids := make([]uint64, len(raw))
	for i, id := range raw {
		ids[i] = id.Uint64()
	}
	return ids, nil
}

func (s *Service) Balance(ctx context.Context) (*big.Int, error) {
	var balance *big.Int
	if err := s.gateway.Read(ctx, models.NewRequest(models.Product, "getBalance"), &balance); err != nil {
		return nil, chainerrors.WithOp("product.balance", err)
	}
	return balance, nil
}

// ReleasePayments pays the sales balance out to the payees with the shares
// fixed at deployment. Configured shares that do not add up to 100 stop the
// release before anything is submitted.
func (s *Service) ReleasePayments(ctx context.Context, opts models.CallOptions) (*models.Receipt, error) {
	const op = "product.releasePayments"
	if s.shares != nil {
		if err := split.ValidatePercentages(s.shares); err != nil {
			return nil, chainerrors.WithOp(op, err)
		}
	}
	receipt, err := s.gateway.Submit(ctx, opts.Apply(models.NewRequest(models.Product, "releasePayments")))
	if err != nil {
		return nil, chainerrors.WithOp(op, err)
	}
	s.logger.Info().Str("txHash", receipt.TxHash.Hex()).Msg("Payments released to all payees")
	return receipt, nil
}
