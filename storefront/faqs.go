package storefront

import "context"

// FAQs returns the help-center questions, cached for FAQsTTL.
func (s *Service) FAQs(ctx context.Context) ([]FAQItem, error) {
	r := resource[[]FAQItem]{name: "faqs", entry: s.faqs, ttl: s.ttls.FAQs}
	return readThrough(ctx, s, r, func(ctx context.Context) ([]FAQItem, error) {
		var resp envelope[[]FAQItem]
		if err := s.get(ctx, "/faqs", &resp); err != nil {
			return nil, err
		}
		if !resp.Success {
			return nil, invalidResponse("faqs", resp.Error)
		}
		if resp.Data == nil {
			resp.Data = []FAQItem{}
		}
		return resp.Data, nil
	})
}
