// Package dynamo implements the document backend adapter on DynamoDB. The
// composite natural key maps directly onto the table's primary key (tax_id
// partition key, fiscal_year sort key), so the engine's native conditional
// write is the upsert primitive: UpdateItem creates the item when absent and
// overwrites only the supplied fields when present.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"

	"finstmt/pkg/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// Compile-time contract assertion ensuring the store satisfies the adapter interface.
var _ domain.Adapter = (*Store)(nil)

// Client is the slice of the DynamoDB API the adapter uses. *dynamodb.Client
// satisfies it; tests substitute an in-memory fake.
type Client interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, opts ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

// Config carries document backend settings.
//
// Environment mapping (see internal/config):
//
//	FINSTMT_DYNAMO_REGION    AWS region (required unless endpoint set)
//	FINSTMT_DYNAMO_ENDPOINT  optional custom endpoint (DynamoDB Local)
//	FINSTMT_DYNAMO_PREFIX    optional table name prefix
//	AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY  optional static credentials
type Config struct {
	Region          string
	Endpoint        string
	TablePrefix     string
	AccessKeyID     string
	SecretAccessKey string
}

// Store is the document adapter. Each call is an independent network request;
// there is no persistent connection to release.
type Store struct {
	client Client
	prefix string
}

// NewStore builds the SDK client from Config.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Region == "" && cfg.Endpoint == "" {
		return nil, domain.Misconfigured("document backend requires a region or endpoint")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, domain.Misconfigured(fmt.Sprintf("load aws config: %v", err))
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, prefix: cfg.TablePrefix}, nil
}

// NewStoreWithClient wires an explicit client, for tests.
func NewStoreWithClient(client Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Kind implements domain.Adapter.
func (s *Store) Kind() domain.BackendKind { return domain.BackendDocument }

func (s *Store) table(rt domain.RecordType) string { return s.prefix + rt.Table() }
func (s *Store) companiesTable() string            { return s.prefix + "companies" }

func recordKey(taxID string, year int) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		domain.FieldTaxID:      &types.AttributeValueMemberS{Value: taxID},
		domain.FieldFiscalYear: &types.AttributeValueMemberN{Value: strconv.Itoa(year)},
	}
}

// scanAll drains a scan across its 1MB pages by following LastEvaluatedKey,
// so large tables are never silently truncated.
func (s *Store) scanAll(ctx context.Context, in *dynamodb.ScanInput) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, in)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
		if len(out.LastEvaluatedKey) == 0 {
			return items, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// Companies scans the companies table, ordered by name.
func (s *Store) Companies(ctx context.Context) ([]domain.Company, error) {
	items, err := s.scanAll(ctx, &dynamodb.ScanInput{TableName: aws.String(s.companiesTable())})
	if err != nil {
		return nil, domain.QueryFailed("scan companies", err)
	}
	companies := make([]domain.Company, 0, len(items))
	for _, item := range items {
		var c struct {
			TaxID string `dynamodbav:"tax_id"`
			Name  string `dynamodbav:"company_name"`
		}
		if err := attributevalue.UnmarshalMap(item, &c); err != nil {
			return nil, domain.QueryFailed("decode company", err)
		}
		companies = append(companies, domain.Company{ID: syntheticID(c.TaxID), TaxID: c.TaxID, Name: c.Name})
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].Name < companies[j].Name })
	return companies, nil
}

// Find scans with a filter expression and sorts client-side into contract order.
func (s *Store) Find(ctx context.Context, rt domain.RecordType, f domain.Filter) ([]domain.Record, error) {
	in := &dynamodb.ScanInput{TableName: aws.String(s.table(rt))}
	var exprs []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	if f.TaxID != "" {
		exprs = append(exprs, "#t = :t")
		names["#t"] = domain.FieldTaxID
		values[":t"] = &types.AttributeValueMemberS{Value: f.TaxID}
	}
	if f.FiscalYear != 0 {
		exprs = append(exprs, "#y = :y")
		names["#y"] = domain.FieldFiscalYear
		values[":y"] = &types.AttributeValueMemberN{Value: strconv.Itoa(f.FiscalYear)}
	}
	if f.CompanyName != "" {
		exprs = append(exprs, "#c = :c")
		names["#c"] = domain.FieldCompanyName
		values[":c"] = &types.AttributeValueMemberS{Value: f.CompanyName}
	}
	if len(exprs) > 0 {
		in.FilterExpression = aws.String(strings.Join(exprs, " AND "))
		in.ExpressionAttributeNames = names
		in.ExpressionAttributeValues = values
	}
	items, err := s.scanAll(ctx, in)
	if err != nil {
		return nil, domain.QueryFailed(fmt.Sprintf("scan %s", s.table(rt)), err)
	}
	records := make([]domain.Record, 0, len(items))
	for _, item := range items {
		rec, err := itemToRecord(rt, item)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	domain.SortRecords(records)
	return records, nil
}

// FindByKey reads the item for the composite key, or nil when absent.
func (s *Store) FindByKey(ctx context.Context, rt domain.RecordType, taxID string, year int) (*domain.Record, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table(rt)),
		Key:       recordKey(taxID, year),
	})
	if err != nil {
		return nil, domain.QueryFailed(fmt.Sprintf("get %s", s.table(rt)), err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	rec, err := itemToRecord(rt, out.Item)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Upsert issues the native conditional write: the composite primary key is
// the conflict target, and only the supplied fields are written.
func (s *Store) Upsert(ctx context.Context, rt domain.RecordType, rec domain.Record) (domain.Record, error) {
	in := &dynamodb.UpdateItemInput{
		TableName:    aws.String(s.table(rt)),
		Key:          recordKey(rec.TaxID, rec.FiscalYear),
		ReturnValues: types.ReturnValueAllNew,
	}
	applySet(in, rt, rec.Fields)
	out, err := s.client.UpdateItem(ctx, in)
	if err != nil {
		return domain.Record{}, domain.QueryFailed(fmt.Sprintf("upsert %s", s.table(rt)), err)
	}
	stored, err := itemToRecord(rt, out.Attributes)
	if err != nil {
		return domain.Record{}, err
	}
	s.syncCompany(ctx, stored)
	return stored, nil
}

// Update is Upsert constrained to existing items via a condition expression.
func (s *Store) Update(ctx context.Context, rt domain.RecordType, taxID string, year int, fields domain.Fields) (domain.Record, error) {
	in := &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table(rt)),
		Key:                 recordKey(taxID, year),
		ReturnValues:        types.ReturnValueAllNew,
		ConditionExpression: aws.String("attribute_exists(tax_id)"),
	}
	if !applySet(in, rt, fields) {
		return domain.Record{}, domain.Validationf("no updatable fields supplied")
	}
	out, err := s.client.UpdateItem(ctx, in)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return domain.Record{}, domain.NotFoundf("%s record %s/%d not found", rt, taxID, year)
		}
		return domain.Record{}, domain.QueryFailed(fmt.Sprintf("update %s", s.table(rt)), err)
	}
	stored, err := itemToRecord(rt, out.Attributes)
	if err != nil {
		return domain.Record{}, err
	}
	s.syncCompany(ctx, stored)
	return stored, nil
}

// Delete removes the item and returns the removed snapshot for undo.
func (s *Store) Delete(ctx context.Context, rt domain.RecordType, taxID string, year int) (domain.Record, error) {
	out, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.table(rt)),
		Key:          recordKey(taxID, year),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return domain.Record{}, domain.QueryFailed(fmt.Sprintf("delete %s", s.table(rt)), err)
	}
	if len(out.Attributes) == 0 {
		return domain.Record{}, domain.NotFoundf("%s record %s/%d not found", rt, taxID, year)
	}
	return itemToRecord(rt, out.Attributes)
}

// Status probes with DescribeTable on the balance-sheet table.
func (s *Store) Status(ctx context.Context) domain.Status {
	st := domain.Status{DatabaseType: domain.BackendDocument}
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table(domain.BalanceSheet)),
	})
	if err != nil {
		st.State = domain.StateFailed
		st.Message = fmt.Sprintf("connection failed: %v", err)
		return st
	}
	st.State = domain.StateConnected
	st.Message = "connected (dynamodb)"
	return st
}

// Close implements domain.Adapter; the SDK client holds no persistent connection.
func (s *Store) Close() error { return nil }

// applySet builds the SET update expression from the supplied fields in
// schema order. Returns false when nothing is supplied (bare key insert).
func applySet(in *dynamodb.UpdateItemInput, rt domain.RecordType, fields domain.Fields) bool {
	rec := domain.Record{Fields: fields}
	var sets []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	if in.ExpressionAttributeNames != nil {
		names = in.ExpressionAttributeNames
	}
	i := 0
	for _, col := range domain.Schema(rt) {
		if domain.IsKeyField(col.Code) {
			continue
		}
		av, ok := fieldAttr(col, rec)
		if !ok {
			continue
		}
		n := fmt.Sprintf("#f%d", i)
		v := fmt.Sprintf(":v%d", i)
		i++
		sets = append(sets, n+" = "+v)
		names[n] = col.Code
		values[v] = av
	}
	if len(sets) == 0 {
		return false
	}
	in.UpdateExpression = aws.String("SET " + strings.Join(sets, ", "))
	in.ExpressionAttributeNames = names
	in.ExpressionAttributeValues = values
	return true
}

func fieldAttr(col domain.Column, rec domain.Record) (types.AttributeValue, bool) {
	switch col.Code {
	case domain.FieldCompanyName:
		if rec.CompanyName == nil {
			return nil, false
		}
		return &types.AttributeValueMemberS{Value: *rec.CompanyName}, true
	case domain.FieldAccountItem:
		if rec.AccountItem == nil {
			return nil, false
		}
		return &types.AttributeValueMemberS{Value: *rec.AccountItem}, true
	default:
		d, ok := rec.Figures[col.Code]
		if !ok {
			return nil, false
		}
		return &types.AttributeValueMemberN{Value: d.String()}, true
	}
}

// itemToRecord decodes an item against the record type's schema; attributes
// outside the schema are dropped, mirroring the unknown-field filter.
func itemToRecord(rt domain.RecordType, item map[string]types.AttributeValue) (domain.Record, error) {
	var rec domain.Record
	for _, col := range domain.Schema(rt) {
		av, ok := item[col.Code]
		if !ok {
			continue
		}
		switch col.Kind {
		case domain.KindYear:
			n, ok := av.(*types.AttributeValueMemberN)
			if !ok {
				return domain.Record{}, domain.QueryFailed("decode fiscal_year", fmt.Errorf("unexpected attribute type %T", av))
			}
			year, err := strconv.Atoi(n.Value)
			if err != nil {
				return domain.Record{}, domain.QueryFailed("decode fiscal_year", err)
			}
			rec.FiscalYear = year
		case domain.KindTaxID:
			if sv, ok := av.(*types.AttributeValueMemberS); ok {
				rec.TaxID = sv.Value
			}
		case domain.KindText:
			sv, ok := av.(*types.AttributeValueMemberS)
			if !ok || sv.Value == "" {
				continue
			}
			v := sv.Value
			switch col.Code {
			case domain.FieldCompanyName:
				rec.CompanyName = &v
			case domain.FieldAccountItem:
				rec.AccountItem = &v
			}
		case domain.KindNumber:
			nv, ok := av.(*types.AttributeValueMemberN)
			if !ok {
				continue
			}
			d, err := decimal.NewFromString(nv.Value)
			if err != nil {
				return domain.Record{}, domain.QueryFailed("decode "+col.Code, err)
			}
			if rec.Figures == nil {
				rec.Figures = make(map[string]decimal.Decimal)
			}
			rec.Figures[col.Code] = d
		}
	}
	return rec, nil
}

// syncCompany mirrors the denormalized company name into the companies table.
// Best effort: company bookkeeping must never fail a record write.
func (s *Store) syncCompany(ctx context.Context, rec domain.Record) {
	if rec.CompanyName == nil || *rec.CompanyName == "" {
		return
	}
	in := &dynamodb.UpdateItemInput{
		TableName: aws.String(s.companiesTable()),
		Key: map[string]types.AttributeValue{
			domain.FieldTaxID: &types.AttributeValueMemberS{Value: rec.TaxID},
		},
		UpdateExpression:         aws.String("SET #n = :n"),
		ExpressionAttributeNames: map[string]string{"#n": domain.FieldCompanyName},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n": &types.AttributeValueMemberS{Value: *rec.CompanyName},
		},
	}
	_, _ = s.client.UpdateItem(ctx, in)
}

// syntheticID derives a stable numeric company id from the tax id, since the
// document backend has no serial column to lean on.
func syntheticID(taxID string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(taxID))
	return int64(h.Sum32())
}
