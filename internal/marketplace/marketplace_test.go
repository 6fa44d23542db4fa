package marketplace

import (
	"context"
	"contract-orchestrator/internal/chainerrors"
	"contract-orchestrator/internal/contracts"
	"contract-orchestrator/internal/models"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seller = common.HexToAddress("0x3bB94F092f247A37DA1832D802Ae2CC2cA8d4526")
	buyer  = models.MustParseAddress("0x8ba1f109551bD432803012645Ac136ddd64DBA72")
)

// fakeShop simulates the product contract
type fakeShop struct {
	products  []onchainProduct
	purchases map[common.Address][]*big.Int
	balance   *big.Int
	submits   []models.TransactionRequest
}

func newFakeShop() *fakeShop {
	return &fakeShop{purchases: make(map[common.Address][]*big.Int), balance: new(big.Int)}
}

func (f *fakeShop) Submit(_ context.Context, req models.TransactionRequest) (*models.Receipt, error) {
	f.submits = append(f.submits, req)
	receipt := &models.Receipt{TxHash: common.Hash{byte(len(f.submits))}, Status: models.ReceiptSuccessful}
	switch req.Method {
	case "addProduct":
		id := big.NewInt(int64(len(f.products) + 1))
		f.products = append(f.products, onchainProduct{Id: id, Name: req.Args[0].(string), Price: req.Args[1].(*big.Int), Seller: seller, Active: true})
		receipt.Logs = []models.Log{{Topics: []common.Hash{productAddedSignature, common.BigToHash(id), common.BytesToHash(seller.Bytes())}}}
	case "buyProduct":
		id := req.Args[0].(*big.Int)
		p := f.products[id.Int64()-1]
		if !p.Active {
			return nil, chainerrors.CallFailed(req.Operation(), &chainerrors.RevertError{Reason: "Product is not active"})
		}
		if req.Value.Cmp(p.Price) != 0 {
			return nil, chainerrors.CallFailed(req.Operation(), &chainerrors.RevertError{Reason: "Incorrect price"})
		}
		f.balance.Add(f.balance, req.Value)
		f.purchases[req.From.Common()] = append(f.purchases[req.From.Common()], id)
	case "disableProduct":
		f.products[req.Args[0].(*big.Int).Int64()-1].Active = false
	case "editProduct", "releasePayments":
	default:
		return nil, errors.New("unexpected method " + req.Method)
	}
	return receipt, nil
}

func (f *fakeShop) Read(_ context.Context, req models.TransactionRequest, out any) error {
	switch req.Method {
	case "getAllProducts":
		*out.(*[]onchainProduct) = append([]onchainProduct(nil), f.products...)
	case "getUserPurchases":
		*out.(*[]*big.Int) = f.purchases[req.Args[0].(common.Address)]
	case "getBalance":
		*out.(**big.Int) = new(big.Int).Set(f.balance)
	default:
		return chainerrors.ReadFailed(req.Operation(), errors.New("unexpected read"))
	}
	return nil
}

func (f *fakeShop) Balance(context.Context, common.Address) (*big.Int, error) {
	return new(big.Int), nil
}

func newService(f *fakeShop) *Service {
	logger := zerolog.Nop()
	return NewService(f, &logger)
}

func TestAddBuyAndList(t *testing.T) {
	f := newFakeShop()
	svc := newService(f)
	ctx := context.Background()

	receipt, err := svc.AddProduct(ctx, "Course", big.NewInt(500), models.CallOptions{})
	require.NoError(t, err)
	id, ok := AddedProductID(receipt)
	require.True(t, ok)
	assert.Equal(t, uint64(1), id)

	_, err = svc.BuyProduct(ctx, id, big.NewInt(500), models.CallOptions{Sender: &buyer})
	require.NoError(t, err)

	_, err = svc.BuyProduct(ctx, id, big.NewInt(400), models.CallOptions{Sender: &buyer})
	assert.ErrorIs(t, err, chainerrors.ErrChainCallFailed)
	assert.Contains(t, err.Error(), "Incorrect price")

	products, err := svc.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Course", products[0].Name)
	assert.Equal(t, "500", products[0].Price.String())
	assert.True(t, products[0].Active)
	assert.Equal(t, seller, products[0].Seller.Common())

	purchases, err := svc.UserPurchases(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, purchases)

	balance, err := svc.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "500", balance.String())
}

func TestDisabledProductCannotBeBought(t *testing.T) {
	f := newFakeShop()
	svc := newService(f)
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "Course", big.NewInt(1), models.CallOptions{})
	require.NoError(t, err)
	_, err = svc.DisableProduct(ctx, 1, models.CallOptions{})
	require.NoError(t, err)

	_, err = svc.BuyProduct(ctx, 1, big.NewInt(1), models.CallOptions{Sender: &buyer})
	assert.ErrorIs(t, err, chainerrors.ErrChainCallFailed)
	assert.Contains(t, err.Error(), "product.buy")
}

func TestListingValidation(t *testing.T) {
	f := newFakeShop()
	svc := newService(f)
	ctx := context.Background()

	_, err := svc.AddProduct(ctx, "  ", big.NewInt(1), models.CallOptions{})
	assert.ErrorIs(t, err, ErrEmptyName)
	_, err = svc.AddProduct(ctx, "Course", big.NewInt(0), models.CallOptions{})
	assert.Error(t, err)
	_, err = svc.EditProduct(ctx, 1, "Course", nil, true, models.CallOptions{})
	assert.Error(t, err)
	_, err = svc.BuyProduct(ctx, 1, big.NewInt(-5), models.CallOptions{})
	assert.Error(t, err)
	assert.Empty(t, f.submits)

	_, err = svc.EditProduct(ctx, 1, "Course v2", big.NewInt(9), false, models.CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, []any{big.NewInt(1), "Course v2", big.NewInt(9), false}, f.submits[0].Args)
}

func TestReleasePaymentsTakesNoArguments(t *testing.T) {
	f := newFakeShop()
	svc := newService(f)

	_, err := svc.ReleasePayments(context.Background(), models.CallOptions{})
	require.NoError(t, err)
	require.Len(t, f.submits, 1)
	assert.Equal(t, "releasePayments", f.submits[0].Method)
	assert.Empty(t, f.submits[0].Args)

	packed, err := contracts.MustEmbeddedABI(models.Product).Pack("releasePayments")
	require.NoError(t, err)
	assert.Len(t, packed, 4)
}

func TestReleasePaymentsChecksDeploymentShares(t *testing.T) {
	f := newFakeShop()
	logger := zerolog.Nop()

	bad := NewService(f, &logger, WithShares([]uint8{80, 15}))
	_, err := bad.ReleasePayments(context.Background(), models.CallOptions{})
	assert.ErrorIs(t, err, chainerrors.ErrInvalidSplit)
	assert.Empty(t, f.submits)

	good := NewService(f, &logger, WithShares([]uint8{80, 20}))
	_, err = good.ReleasePayments(context.Background(), models.CallOptions{})
	require.NoError(t, err)
	assert.Len(t, f.submits, 1)
	assert.Equal(t, []uint8{80, 20}, good.Shares())
}
