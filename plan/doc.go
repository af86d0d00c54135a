package plan

// The following documentation is used to describe how a statement is mapped
// into a query tree.
//
// The statement is tokenized and grouped by package sql, then every field of
// the tree is filled by its own extractor, each one draining a fresh clause
// cursor, so no field depends on another field's intermediate output.
//
// 1) Select
//    Each select item is either a plain column (ColumnRef) or a function call
//    (AggregateRef). The order of the items is recorded in Projection, the
//    output columns of an execution follow it. count(*) has no column.
//
// 2) Tables
//    Each FROM item becomes a TableDef, schema.name [alias]. Sub-selects are
//    looked through, their tables are listed in place of the sub-select.
//
// 3) Where
//    The WHERE clause is split on top level AND. A conjunct which is exactly
//    one comparison is then classified:
//
//    col op col         => JoinPredicate
//    col op literal     => Filter
//    literal op col     => Filter, with the operator flipped, ie
//                          '1998-01-01' > c becomes c < '1998-01-01'
//    x op (select ...)  => Subqueries, verbatim
//    col [not] like 'p' => Filter, operator like or not like
//
//    Anything else (OR, IN, BETWEEN, function call ...) is kept verbatim in
//    Residual and a warning is recorded.
//
// 4) GroupBy / OrderBy
//    Plain columns; an order item may also be an aggregate call, it then
//    refers to the output column function_column.
//
// 5) Having
//    Extracted as text only, it is never evaluated.
//
// Items which can not be classified are skipped and an ErrClassification
// warning is recorded in Warnings, decomposition itself only fails when the
// text can not be tokenized.
