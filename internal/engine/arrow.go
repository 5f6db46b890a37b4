package engine

import (
	"io"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/ipc"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// EnrichedSchema is the Arrow layout of the enriched table.
var EnrichedSchema = arrow.NewSchema([]arrow.Field{
	{Name: "code", Type: arrow.BinaryTypes.String},
	{Name: "country", Type: arrow.BinaryTypes.String},
	{Name: "year", Type: arrow.PrimitiveTypes.Int32},
	{Name: "co2", Type: arrow.PrimitiveTypes.Float64},
	{Name: "continent", Type: arrow.BinaryTypes.String, Nullable: true},
	{Name: "population_estimate", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	{Name: "co2_cumulative", Type: arrow.PrimitiveTypes.Float64},
	{Name: "co2_per_capita", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
}, nil)

// Record builds a single Arrow record from the table. The caller releases it.
func (t *Table) Record(mem memory.Allocator) arrow.Record {
	b := array.NewRecordBuilder(mem, EnrichedSchema)
	defer b.Release()

	code := b.Field(0).(*array.StringBuilder)
	country := b.Field(1).(*array.StringBuilder)
	year := b.Field(2).(*array.Int32Builder)
	co2 := b.Field(3).(*array.Float64Builder)
	continent := b.Field(4).(*array.StringBuilder)
	pop := b.Field(5).(*array.Float64Builder)
	cum := b.Field(6).(*array.Float64Builder)
	perCap := b.Field(7).(*array.Float64Builder)

	b.Reserve(len(t.Records))
	for _, r := range t.Records {
		code.Append(r.Code)
		country.Append(r.Country)
		year.Append(int32(r.Year))
		co2.Append(r.CO2)
		if r.Continent == "" {
			continent.AppendNull()
		} else {
			continent.Append(r.Continent)
		}
		appendOptional(pop, r.PopulationEstimate)
		cum.Append(r.CO2Cumulative)
		appendOptional(perCap, r.CO2PerCapita)
	}
	return b.NewRecord()
}

// WriteArrow streams the table to w in the Arrow IPC stream format.
func (t *Table) WriteArrow(w io.Writer) error {
	mem := memory.NewGoAllocator()
	rec := t.Record(mem)
	defer rec.Release()

	wr := ipc.NewWriter(w, ipc.WithSchema(EnrichedSchema), ipc.WithAllocator(mem))
	if err := wr.Write(rec); err != nil {
		wr.Close()
		return err
	}
	return wr.Close()
}

func appendOptional(b *array.Float64Builder, v *float64) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.Append(*v)
}
