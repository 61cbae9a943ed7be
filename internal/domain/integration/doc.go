// Package integration contains the purchase-order integration bounded context
// between Business Central (the ERP) and Tradecloud (the commerce platform).
//
// Key concepts:
//   - PurchaseOrder / PurchaseOrderLine: the ERP's OData view of an order
//   - SingleDeliveryOrder: the neutral order representation sent to Tradecloud
//   - OrderEvent: the order response published by Tradecloud
//   - UpdatedLine / NewLine: the line mutations applied back to the ERP
//   - Subscription: the ERP change-notification registration
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
