// Package nft mints tokens on the NFT contract, optionally pinning the
// image and metadata first, and reports token ownership.
package nft

import (
	"context"
	"contract-orchestrator/internal/chainerrors"
	"contract-orchestrator/internal/events"
	"contract-orchestrator/internal/interfaces"
	"contract-orchestrator/internal/models"
	"contract-orchestrator/internal/validation"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Attribute is one ERC-721 metadata trait
type Attribute struct {
	TraitType string `json:"trait_type"`
	Value     string `json:"value"`
}

// Metadata is the JSON document a token URI points to
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}

// CreateRequest describes a token to pin and mint
type CreateRequest struct {
	ImageName   string
	Image       []byte
	Name        string
	Description string
	Attributes  []Attribute
}

type Service struct {
	gateway   interfaces.ContractGateway
	assets    interfaces.AssetStore
	recipient models.Address
	logger    *zerolog.Logger
}

// NewService builds the NFT service. assets may be nil when Create is not
// used; recipient receives tokens minted by Create.
func NewService(gateway interfaces.ContractGateway, assets interfaces.AssetStore, recipient models.Address, logger *zerolog.Logger) *Service {
	return &Service{gateway: gateway, assets: assets, recipient: recipient, logger: logger}
}

// Mint mints a token with tokenURI to `to`. The id comes from the Transfer
// log and is unknown when the receipt has none.
func (s *Service) Mint(ctx context.Context, to models.Address, tokenURI string, opts models.CallOptions) (models.MintResult, error) {
	const op = "nft.mint"
	if to.IsZero() {
		return models.MintResult{}, fmt.Errorf("%s: %w: recipient is the zero address", op, validation.ErrInvalid)
	}
	if strings.TrimSpace(tokenURI) == "" {
		return models.MintResult{}, fmt.Errorf("%s: %w: token URI cannot be empty", op, validation.ErrInvalid)
	}

	receipt, err := s.gateway.Submit(ctx, opts.Apply(models.NewRequest(models.NFT, "mintNFT", to.Common(), tokenURI)))
	if err != nil {
		return models.MintResult{}, chainerrors.WithOp(op, err)
	}

	result := models.MintResult{TxHash: receipt.TxHash, TokenID: events.DecodeTokenID(receipt)}
	if !result.TokenID.Known() {
		s.logger.Warn().Str("txHash", receipt.TxHash.Hex()).Msg("Mint confirmed without a Transfer log, token id unknown")
	} else {
		s.logger.Info().Str("txHash", receipt.TxHash.Hex()).Str("tokenId", result.TokenID.String()).Str("to", to.String()).Msg("NFT minted")
	}
	return result, nil
}

func (s *Service) OwnerOf(ctx context.Context, tokenID *big.Int) (models.Address, error) {
	if tokenID == nil || tokenID.Sign() < 0 {
		return models.Address{}, fmt.Errorf("nft.ownerOf: %w: token id must be non-negative", validation.ErrInvalid)
	}
	var owner common.Address
	if err := s.gateway.Read(ctx, models.NewRequest(models.NFT, "ownerOf", new(big.Int).Set(tokenID)), &owner); err != nil {
		return models.Address{}, chainerrors.WithOp("nft.ownerOf", err)
	}
	return models.AddressFromCommon(owner), nil
}

func (s *Service) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	var uri string
	if err := s.gateway.Read(ctx, models.NewRequest(models.NFT, "tokenURI", new(big.Int).Set(tokenID)), &uri); err != nil {
		return "", chainerrors.WithOp("nft.tokenURI", err)
	}
	return uri, nil
}

// Create pins the image, pins metadata pointing at it and mints the token
// to the configured recipient.
func (s *Service) Create(ctx context.Context, req CreateRequest, opts models.CallOptions) (models.MintResult, error) {
	const op = "nft.create"
	if s.assets == nil {
		return models.MintResult{}, fmt.Errorf("%s: no asset store configured", op)
	}
	if len(req.Image) == 0 {
		return models.MintResult{}, fmt.Errorf("%s: %w: image is empty", op, validation.ErrInvalid)
	}
	if strings.TrimSpace(req.Name) == "" {
		return models.MintResult{}, fmt.Errorf("%s: %w: name cannot be empty", op, validation.ErrInvalid)
	}
	if s.recipient.IsZero() {
		return models.MintResult{}, fmt.Errorf("%s: no mint recipient configured", op)
	}

	imageName := req.ImageName
	if imageName == "" {
		imageName = req.Name
	}
	imageURL, err := s.assets.UploadBinary(ctx, imageName, req.Image)
	if err != nil {
		return models.MintResult{}, fmt.Errorf("%s: %w", op, err)
	}

	metadata := Metadata{
		Name:        req.Name,
		Description: req.Description,
		Image:       imageURL,
		Attributes:  req.Attributes,
	}
	metadataURL, err := s.assets.UploadJSON(ctx, req.Name+" Metadata", metadata)
	if err != nil {
		return models.MintResult{}, fmt.Errorf("%s: %w", op, err)
	}

	result, err := s.Mint(ctx, s.recipient, metadataURL, opts)
	if err != nil {
		return models.MintResult{}, chainerrors.WithOp(op, err)
	}
	return result, nil
}
